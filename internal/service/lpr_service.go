package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"go.uber.org/zap"
)

var ErrPlateNotRecognized = errors.New("no vehicle number recognised in image")

// TextDetector is the part of the Rekognition client used for plate reading.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// LPRService reads vehicle registration numbers from images so a booking can
// be prefilled.
type LPRService struct {
	detector TextDetector
}

func NewLPRService(detector TextDetector) *LPRService {
	return &LPRService{detector: detector}
}

// Indian registration format, e.g. MH12AB1234, DL3C1234, KA01MJ2022.
var plateRegex = regexp.MustCompile(`^[A-Z]{2}[0-9]{1,2}[A-Z]{0,3}[0-9]{4}$`)

// ReadVehicleNumber returns the plate-shaped text with the highest confidence.
func (s *LPRService) ReadVehicleNumber(ctx context.Context, imageBytes []byte) (string, float32, error) {
	if len(imageBytes) == 0 {
		return "", 0, validationError("empty image")
	}

	result, err := s.detector.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	})
	if err != nil {
		return "", 0, fmt.Errorf("LPRService.ReadVehicleNumber: %w", err)
	}

	var best string
	var maxConfidence float32
	var seen []string
	for _, detection := range result.TextDetections {
		if detection.Type != types.TextTypesLine && detection.Type != types.TextTypesWord {
			continue
		}
		if detection.DetectedText == nil || detection.Confidence == nil {
			continue
		}
		candidate := normalizeVehicleNumber(strings.NewReplacer("-", "", ".", "").Replace(*detection.DetectedText))
		seen = append(seen, candidate)
		if plateRegex.MatchString(candidate) && *detection.Confidence > maxConfidence {
			best = candidate
			maxConfidence = *detection.Confidence
		}
	}

	if best == "" {
		zap.L().Debug("no plate in detected text", zap.Strings("texts", seen))
		return "", 0, ErrPlateNotRecognized
	}
	return best, maxConfidence, nil
}
