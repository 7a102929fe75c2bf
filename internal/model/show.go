package model

import (
	"strings"
	"time"
)

// Show represents one listed entry of the directory: a performance or an
// animation offered by a company.  Shows are submitted unapproved and only
// become publicly visible once an administrator approves them.  The
// category, region and age range columns are free text typed by the
// submitter and are only ever matched by substring.
//
// Fields:
//  ID           – primary key identifier.
//  OwnerID      – account owning the show (nullable, back reference only).
//  CompanyName  – name of the company presenting the show.
//  Title        – title of the show.
//  Description  – free text description.
//  Category     – free text, may hold several comma/space separated tags.
//  Location     – one or more cities served.
//  Region       – free text region name.
//  AgeRange     – free text age range ("6-10 ans", "2 à 10", ...).
//  Latitude     – optional latitude; set together with Longitude.
//  Longitude    – optional longitude; set together with Latitude.
//  Date         – optional event date.
//  IsEvent      – true for a dated event announcement, false for a catalog entry.
//  ContactEmail – optional contact address of the show.
//  ContactPhone – optional contact phone.
//  Website      – optional website.
//  FileName     – stored attachment name (image or pdf).
//  FileMimeType – MIME type of the stored attachment.
//  Approved     – visibility flag set by an administrator.
//  DisplayOrder – manual ordering, lower sorts first (default 0).
//  CreatedAt    – creation timestamp.
type Show struct {
	ID           uint64     `json:"id"`                      // shows.id
	OwnerID      *uint64    `json:"owner_id,omitempty"`      // shows.user_id (nullable)
	CompanyName  string     `json:"company_name,omitempty"`  // shows.company_name
	Title        string     `json:"title"`                   // shows.title
	Description  string     `json:"description,omitempty"`   // shows.description
	Category     string     `json:"category,omitempty"`      // shows.category
	Location     string     `json:"location,omitempty"`      // shows.location
	Region       string     `json:"region,omitempty"`        // shows.region
	AgeRange     string     `json:"age_range,omitempty"`     // shows.age_range
	Latitude     *float64   `json:"latitude,omitempty"`      // shows.latitude (nullable)
	Longitude    *float64   `json:"longitude,omitempty"`     // shows.longitude (nullable)
	Date         *time.Time `json:"date,omitempty"`          // shows.date (nullable)
	IsEvent      bool       `json:"is_event"`                // shows.is_event
	ContactEmail *string    `json:"contact_email,omitempty"` // shows.contact_email (nullable)
	ContactPhone string     `json:"contact_phone,omitempty"` // shows.contact_phone
	Website      string     `json:"website,omitempty"`       // shows.website
	FileName     string     `json:"file_name,omitempty"`     // shows.file_name
	FileMimeType string     `json:"file_mimetype,omitempty"` // shows.file_mimetype
	Approved     bool       `json:"approved"`                // shows.approved
	DisplayOrder int        `json:"display_order"`           // shows.display_order
	CreatedAt    time.Time  `json:"created_at"`              // shows.created_at
}

// HasCoordinates reports whether both latitude and longitude are set.
func (s Show) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Email returns the trimmed contact email of the show, or "" when none is set.
func (s Show) Email() string {
	if s.ContactEmail == nil {
		return ""
	}
	return strings.TrimSpace(*s.ContactEmail)
}

// IsPDF reports whether the stored attachment is a pdf document.
func (s Show) IsPDF() bool {
	return strings.HasPrefix(strings.ToLower(s.FileMimeType), "application/pdf")
}
