package models

import (
	"strings"
	"time"
)

// ContactList groups contacts for campaign targeting.
type ContactList struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id" validate:"required"`
	Name      string    `json:"name"     validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

// Contact is a single campaign recipient. CustomData carries per-contact
// personalization keys beyond the built-in name tokens.
type Contact struct {
	ID            string         `json:"id"`
	ContactListID string         `json:"contact_list_id" validate:"required"`
	Phone         string         `json:"phone"           validate:"required"`
	FirstName     string         `json:"first_name,omitempty"`
	FullName      string         `json:"full_name,omitempty"`
	CustomData    map[string]any `json:"custom_data,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// PersonalizationData returns the token map used to render campaign
// messages for this contact. Built-in tokens keep the product's original
// Portuguese names.
func (c *Contact) PersonalizationData() map[string]any {
	data := make(map[string]any, len(c.CustomData)+2)

	for key, value := range c.CustomData {
		data[key] = value
	}

	firstName := c.FirstName
	if firstName == "" && c.FullName != "" {
		firstName = strings.Fields(c.FullName)[0]
	}

	data["primeiro_nome"] = firstName
	data["nome_completo"] = c.FullName

	return data
}
