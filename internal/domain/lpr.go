package domain

// LPRRequestDTO carries a base64 encoded vehicle image.
type LPRRequestDTO struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

type LPRResponseDTO struct {
	VehicleNumber string  `json:"vehicle_number"`
	Confidence    float32 `json:"confidence,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}
