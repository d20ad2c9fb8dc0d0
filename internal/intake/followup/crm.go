package followup

import (
	"context"
	"fmt"
	"strings"

	"chainspace-intake/internal/common/zoho"
	"chainspace-intake/internal/models"
)

// LeadStore is the part of the CRM client the lead hook needs.
type LeadStore interface {
	FindLeadByEmail(ctx context.Context, email string) (*zoho.Lead, error)
	CreateLead(ctx context.Context, lead *zoho.Lead) (string, error)
}

// CRMLead records the applicant as a CRM lead. An applicant who already has
// a lead keeps it; resubmissions do not create duplicates.
type CRMLead struct {
	store   LeadStore
	enabled bool
}

func NewCRMLead(store LeadStore, enabled bool) *CRMLead {
	return &CRMLead{store: store, enabled: enabled}
}

func (c *CRMLead) Action() string { return ActionCRMLead }

func (c *CRMLead) Run(ctx context.Context, row *models.ApplicationRow) (string, error) {
	if !c.enabled || c.store == nil {
		return "", ErrDisabled
	}

	existing, err := c.store.FindLeadByEmail(ctx, row.Email)
	if err != nil {
		return "", fmt.Errorf("crm lookup: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	first, last := splitName(row.FullName)
	id, err := c.store.CreateLead(ctx, &zoho.Lead{
		Email:       row.Email,
		FirstName:   first,
		LastName:    last,
		Phone:       row.Phone,
		City:        row.CurrentLocation,
		Source:      "Bootcamp Application",
		Description: "Application " + row.ApplicationID,
	})
	if err != nil {
		return "", fmt.Errorf("crm create: %w", err)
	}
	return id, nil
}

// splitName puts everything after the first word in the last name; Zoho
// requires Last_Name, so a single word goes there.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", full
	case 1:
		return "", parts[0]
	}
	return parts[0], strings.Join(parts[1:], " ")
}
