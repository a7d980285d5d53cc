package specialist

import (
	"time"

	"gorm.io/gorm"
)

type VerificationStatus string

const (
	VerificationPending     VerificationStatus = "pending"
	VerificationApproved    VerificationStatus = "approved"
	VerificationRejected    VerificationStatus = "rejected"
	VerificationUnderReview VerificationStatus = "under-review"
)

type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
)

// MaxMediaSlots is the number of positional image slots a listing exposes on update.
const MaxMediaSlots = 3

// Specialist is a marketplace listing
type Specialist struct {
	ID                   string             `gorm:"type:uuid;primaryKey" json:"id"`
	AverageRating        float64            `gorm:"type:decimal(5,2)" json:"average_rating"`
	IsDraft              bool               `gorm:"not null" json:"is_draft"`
	TotalNumberOfRatings int                `gorm:"not null" json:"total_number_of_ratings"`
	Title                string             `gorm:"type:varchar(255);not null" json:"title"`
	Slug                 string             `gorm:"type:varchar(255);not null;uniqueIndex:idx_specialists_slug" json:"slug"`
	Description          *string            `gorm:"type:text" json:"description"`
	BasePrice            float64            `gorm:"type:decimal(10,2);not null" json:"base_price"`
	PlatformFee          *float64           `gorm:"type:decimal(10,2)" json:"platform_fee"`
	FinalPrice           float64            `gorm:"type:decimal(10,2);not null" json:"final_price"`
	VerificationStatus   VerificationStatus `gorm:"type:varchar(20);not null" json:"verification_status"`
	IsVerified           bool               `gorm:"not null" json:"is_verified"`
	DurationDays         int                `gorm:"not null" json:"duration_days"`
	PurchasesCount       int                `gorm:"not null" json:"purchases_count"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	DeletedAt            gorm.DeletedAt     `gorm:"index" json:"deleted_at"`

	ServiceOfferings []ServiceOffering `gorm:"foreignKey:SpecialistID;constraint:OnDelete:CASCADE" json:"service_offerings"`
	Media            []Media           `gorm:"foreignKey:SpecialistID;constraint:OnDelete:CASCADE" json:"media"`
}

func (Specialist) TableName() string { return "specialists" }

// ServiceOffering is a named sub-service of one specialist
type ServiceOffering struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	SpecialistID string    `gorm:"type:uuid;not null;index" json:"specialist_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (ServiceOffering) TableName() string { return "service_offerings" }

// Media is an uploaded asset sitting in a display slot
type Media struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	SpecialistID string     `gorm:"type:uuid;not null;index:idx_media_specialist_slot,priority:1" json:"specialist_id"`
	FileName     string     `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath     string     `gorm:"type:varchar(500)" json:"file_path"`
	FileSize     int64      `gorm:"not null" json:"file_size"`
	DisplayOrder int        `gorm:"not null;index:idx_media_specialist_slot,priority:2" json:"display_order"`
	MimeType     *string    `gorm:"type:varchar(50)" json:"mime_type"`
	MediaType    MediaType  `gorm:"type:varchar(20);not null" json:"media_type"`
	UploadedAt   *time.Time `json:"uploaded_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Media) TableName() string { return "media" }

// PlatformFee is a configured marketplace fee, read-only over the API
type PlatformFee struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	FeeName     string    `gorm:"type:varchar(100);not null" json:"fee_name"`
	Amount      float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency    string    `gorm:"type:varchar(10);not null" json:"currency"`
	Description *string   `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PlatformFee) TableName() string { return "platform_fee" }

// AutoMigrate creates the listing tables for the gorm backend.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Specialist{},
		&ServiceOffering{},
		&Media{},
		&PlatformFee{},
	)
}

// ListFilter narrows a specialist listing page
type ListFilter struct {
	Page   int
	Limit  int
	Status string // all, draft or published
	Search string
}

func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Attachment is an already-stored file that becomes a Media row
type Attachment struct {
	FileName string
	FilePath string
	FileSize int64
	MimeType string
}
