package model

import "time"

// AnimationRequest is the intake record a visitor submits when looking
// for a show: what kind of animation, where, for whom.  It is created once
// and never mutated afterwards except for the IsPrivate flag and manual
// administrator edits.  The notification matcher reads it to find the
// companies worth contacting.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – short headline of the request.
//  Organisation   – requesting structure (school, town hall, company...).
//  ContactName    – person to contact.
//  Phone          – contact phone.
//  ContactEmail   – contact address of the requester.
//  City           – city or venue of the animation.
//  PostalCode     – postal code of the venue.
//  Region         – region, deduced from the postal code when absent.
//  Dates          – free text dates and times.
//  VenueType      – indoor, outdoor, gymnasium...
//  WantedCategory – kind of show wanted.
//  AgeRange       – audience age range.
//  Audience       – expected audience size.
//  Budget         – budget as typed by the requester.
//  Constraints    – technical constraints.
//  Accessibility  – accessibility notes.
//  IsPrivate      – when true only administrators can see the request.
//  CreatedAt      – submission timestamp.
type AnimationRequest struct {
	ID             uint64    `json:"id"`
	Title          string    `json:"title,omitempty"`
	Organisation   string    `json:"organisation"`
	ContactName    string    `json:"contact_name"`
	Phone          string    `json:"phone"`
	ContactEmail   string    `json:"contact_email"`
	City           string    `json:"city"`
	PostalCode     string    `json:"postal_code,omitempty"`
	Region         string    `json:"region,omitempty"`
	Dates          string    `json:"dates"`
	VenueType      string    `json:"venue_type"`
	WantedCategory string    `json:"wanted_category"`
	AgeRange       string    `json:"age_range"`
	Audience       string    `json:"audience"`
	Budget         string    `json:"budget"`
	Constraints    string    `json:"constraints,omitempty"`
	Accessibility  string    `json:"accessibility,omitempty"`
	IsPrivate      bool      `json:"is_private"`
	CreatedAt      time.Time `json:"created_at"`
}
