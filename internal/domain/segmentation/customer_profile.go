package segmentation

import "github.com/google/uuid"

// CustomerProfileCRM maps a storefront customer id to a profile. Owned by the CRM sync;
// read-only here.
type CustomerProfileCRM struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerProfileID uuid.UUID `gorm:"type:uuid;column:customer_profile_id;not null;index" json:"customer_profile_id"`
	EshopCustomerID   string    `gorm:"column:eshop_customer_id;not null;index:idx_crm_eshop_customer,priority:2" json:"eshop_customer_id"`
	EshopID           int64     `gorm:"column:eshop_id;not null;index:idx_crm_eshop_customer,priority:1" json:"eshop_id"`
}

func (CustomerProfileCRM) TableName() string { return "customer_profile_crm" }

// CustomerProfileBehaviour maps a tracked guest id to a profile. Read-only here.
type CustomerProfileBehaviour struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerProfileID uuid.UUID `gorm:"type:uuid;column:customer_profile_id;not null;index" json:"customer_profile_id"`
	GuestID           string    `gorm:"column:guest_id;not null;index:idx_beh_account_guest,priority:2" json:"guest_id"`
	AccountID         uuid.UUID `gorm:"type:uuid;column:account_id;not null;index:idx_beh_account_guest,priority:1" json:"account_id"`
}

func (CustomerProfileBehaviour) TableName() string { return "customer_profile_behaviour" }

// ProfileRef is one lookup hit: a profile id and the external key it was found under.
type ProfileRef struct {
	CustomerProfileID uuid.UUID `json:"customer_profile_id"`
	ExternalKey       string    `json:"external_key"`
}
