package models

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User roles. "client" is the default for self-registered farmers.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleClient  = "client"
)

// User account statuses.
const (
	UserStatusActive    = "active"
	UserStatusInactive  = "inactive"
	UserStatusSuspended = "suspended"
)

// User is the model for the 'users' table.
// Pointer fields map nullable columns to clean JSON (omitted when absent).
type User struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"userName" db:"username"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password"`
	Role         string `json:"role" db:"role"`
	Status       string `json:"status" db:"status"`

	Phone           *string `json:"phone,omitempty" db:"phone"`
	AddressDistrict *string `json:"addressDistrict,omitempty" db:"address_district"`
	AddressSector   *string `json:"addressSector,omitempty" db:"address_sector"`
	AddressCell     *string `json:"addressCell,omitempty" db:"address_cell"`
	AddressVillage  *string `json:"addressVillage,omitempty" db:"address_village"`

	// Password reset
	OTP        *string    `json:"-" db:"otp"`
	OTPExpires *time.Time `json:"-" db:"otp_expires"`

	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// Password Helper (Standard)
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), 12)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
