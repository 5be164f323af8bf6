package models

import (
	"time"
)

// Instance is an owner-scoped credential binding to the external WhatsApp
// provider: which endpoint to call and with which API key.
type Instance struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"     validate:"required"`
	Name        string    `json:"name"         validate:"required"`
	APIURL      string    `json:"api_url"      validate:"required,url"`
	APIKey      string    `json:"api_key"      validate:"required"`
	InstanceKey string    `json:"instance_key" validate:"required"`
	CreatedAt   time.Time `json:"created_at"`
}
