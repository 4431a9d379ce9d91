package domain

import "time"

// LifecycleState replaces per-entity deleted flags for users, lots and spots.
type LifecycleState string

const (
	StateActive  LifecycleState = "active"
	StateDeleted LifecycleState = "deleted"
)

type User struct {
	ID           int            `json:"id"`
	Username     string         `json:"username"`
	PasswordHash string         `json:"-"`
	Name         string         `json:"name"`
	City         string         `json:"city"`
	Pincode      string         `json:"pincode"`
	IsAdmin      bool           `json:"is_admin"`
	State        LifecycleState `json:"state"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Principal identifies the caller of a service operation.
type Principal struct {
	UserID   int
	Username string
	IsAdmin  bool
}

type RegisterUserDTO struct {
	Username        string `json:"username" binding:"required,min=3,max=50"`
	Password        string `json:"password" binding:"required,min=5,max=100"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	Name            string `json:"name" binding:"required,max=100"`
	City            string `json:"city" binding:"required,max=50"`
	Pincode         string `json:"pincode" binding:"required,len=6,numeric"`
}

type LoginUserDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponseDTO struct {
	Token    string `json:"token"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UpdateProfileDTO carries optional profile changes; empty fields are left untouched.
type UpdateProfileDTO struct {
	Username    string `json:"username" binding:"omitempty,min=3,max=50"`
	Name        string `json:"name" binding:"omitempty,max=100"`
	City        string `json:"city" binding:"omitempty,max=50"`
	Pincode     string `json:"pincode" binding:"omitempty,len=6,numeric"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UserSummary struct {
	User
	ActiveBookings    int `json:"active_bookings"`
	CompletedBookings int `json:"completed_bookings"`
}
