// Package domain defines the persistence models for users, assignment
// requests, assignments, ratings, and writer portfolios. These types are
// mapped with GORM and form the core data layer of the marketplace.
package domain

import (
	"time"
)

// Roles carried by an authenticated principal. Guest is session-only and is
// never persisted to the users table.
const (
	RoleClient = "client"
	RoleWriter = "writer"
	RoleGuest  = "guest"
)

// Writer availability states gating eligibility to accept work.
const (
	WriterActive   = "active"
	WriterBusy     = "busy"
	WriterInactive = "inactive"
)

// AssignmentRequest lifecycle states. A deleted request has no stored state;
// the row is removed.
const (
	RequestOpen      = "open"
	RequestAssigned  = "assigned"
	RequestCompleted = "completed"
	RequestCancelled = "cancelled"
)

// Assignment states. An assignment is created in progress at acceptance time
// and completed when a rating is submitted for it.
const (
	AssignmentInProgress = "in_progress"
	AssignmentCompleted  = "completed"
)

// User represents a registered client or writer. Identity (ExternalID, Email)
// comes from the institutional OAuth collaborator and is immutable here.
//
// Rating and TotalRatings are a cache over the ratings table: they are
// recomputed from scratch whenever that user's rating set changes and must
// never be hand-edited.
//
// ContactSealed holds the WhatsApp number encrypted at rest; it is opened only
// at the point of authorized disclosure (successful acceptance).
type User struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	ExternalID    string    `json:"-"              gorm:"type:varchar(128);not null;uniqueIndex:ux_users_external"`
	Email         string    `json:"email"          gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Name          string    `json:"name"           gorm:"type:varchar(255);not null"`
	Picture       string    `json:"picture"        gorm:"type:varchar(512)"`
	Role          string    `json:"role"           gorm:"type:varchar(16);not null;check:role IN ('client','writer')"`
	WriterStatus  string    `json:"writer_status"  gorm:"type:varchar(16);not null;default:'active';check:writer_status IN ('active','busy','inactive')"`
	Rating        float64   `json:"rating"         gorm:"not null;default:0"`
	TotalRatings  int64     `json:"total_ratings"  gorm:"not null;default:0"`
	ContactSealed []byte    `json:"-"              gorm:"type:blob"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// PublicProfile is the snapshot of a user embedded in listings: enough for a
// counterpart to judge reputation, nothing sensitive.
type PublicProfile struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Picture      string  `json:"picture"`
	Rating       float64 `json:"rating"`
	TotalRatings int64   `json:"total_ratings"`
}

// Public projects the listing-safe view of a user.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:           u.ID,
		Name:         u.Name,
		Picture:      u.Picture,
		Rating:       u.Rating,
		TotalRatings: u.TotalRatings,
	}
}

// AssignmentRequest is an open offer posted by a client. Only rows with
// status=open and created within the retention window appear in the open
// listing. The row is deleted outright (never soft-deleted) by its owner while
// still open, or by the expiration sweeper once stale.
type AssignmentRequest struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	ClientID       string    `json:"client_id"       gorm:"type:char(36);not null;index:idx_requests_client"`
	CourseName     string    `json:"course_name"     gorm:"type:varchar(255);not null"`
	CourseCode     string    `json:"course_code"     gorm:"type:varchar(50);not null"`
	AssignmentType string    `json:"assignment_type" gorm:"type:varchar(100);not null"`
	NumPages       int       `json:"num_pages"       gorm:"not null;check:num_pages > 0"`
	Deadline       time.Time `json:"deadline"        gorm:"not null"`
	EstimatedCost  int       `json:"estimated_cost"  gorm:"not null;check:estimated_cost >= 0"`
	Status         string    `json:"status"          gorm:"type:varchar(16);not null;default:'open';index:idx_requests_status;check:status IN ('open','assigned','completed','cancelled')"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_requests_created"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Client is the owning user. Requests never outlive their owner, so no
	// cascade is configured.
	Client User `json:"-" gorm:"foreignKey:ClientID;references:ID"`
}

// TableName returns the database table name for AssignmentRequest.
func (AssignmentRequest) TableName() string { return "assignment_requests" }

// Assignment records a writer having accepted a specific request. Exactly one
// assignment may exist per request (unique index on request_id); it exists if
// and only if the request left open via acceptance.
type Assignment struct {
	ID          string     `json:"id"           gorm:"type:char(36);primaryKey"`
	RequestID   string     `json:"request_id"   gorm:"type:char(36);not null;uniqueIndex:ux_assignments_request"`
	WriterID    string     `json:"writer_id"    gorm:"type:char(36);not null;index:idx_assignments_writer"`
	ClientID    string     `json:"client_id"    gorm:"type:char(36);not null;index:idx_assignments_client"`
	Status      string     `json:"status"       gorm:"type:varchar(16);not null;default:'in_progress';check:status IN ('in_progress','completed')"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TableName returns the database table name for Assignment.
func (Assignment) TableName() string { return "assignments" }

// Rating is one party's score of the other for a given assignment request.
// At most one rating exists per (rater_id, assignment_request_id); a
// resubmission updates the row in place.
type Rating struct {
	ID                  string    `json:"id"                    gorm:"type:char(36);primaryKey"`
	RaterID             string    `json:"rater_id"              gorm:"type:char(36);not null;uniqueIndex:ux_ratings_rater_request,priority:1"`
	RatedID             string    `json:"rated_id"              gorm:"type:char(36);not null;index:idx_ratings_rated"`
	AssignmentRequestID string    `json:"assignment_request_id" gorm:"type:char(36);not null;uniqueIndex:ux_ratings_rater_request,priority:2"`
	Score               int       `json:"score"                 gorm:"not null;check:score BETWEEN 1 AND 5"`
	Comment             string    `json:"comment"               gorm:"type:text"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName returns the database table name for Rating.
func (Rating) TableName() string { return "ratings" }

// WriterPortfolio is auxiliary profile data: one sample-work reference per
// writer.
type WriterPortfolio struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	WriterID    string    `json:"writer_id"   gorm:"type:char(36);not null;uniqueIndex:ux_portfolios_writer"`
	SampleURL   string    `json:"sample_url"  gorm:"type:varchar(512)"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for WriterPortfolio.
func (WriterPortfolio) TableName() string { return "writer_portfolios" }
