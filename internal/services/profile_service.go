package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/campuswriters/go-market-backend/internal/domain"
	"github.com/campuswriters/go-market-backend/internal/repo"
	"github.com/campuswriters/go-market-backend/internal/secrets"
)

const (
	maxNameLen        = 120
	maxPictureLen     = 500
	maxSampleURLLen   = 500
	maxDescriptionLen = 2000
)

// contactRe accepts E.164-style phone numbers as used for WhatsApp contact
// channels: a plus sign followed by 7 to 15 digits.
var contactRe = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

var nameCaser = cases.Title(language.English, cases.NoLower)

// ProfileService manages user accounts, public profiles, the sealed contact
// channel, and writer portfolios.
type ProfileService struct {
	DB    *gorm.DB
	Vault *secrets.Vault
}

// NewProfileService constructs a ProfileService.
func NewProfileService(db *gorm.DB, vault *secrets.Vault) *ProfileService {
	return &ProfileService{DB: db, Vault: vault}
}

// EnsureUser resolves the signed-in identity to a local user row, creating it
// on first contact. The external subject is the stable key; email, name, and
// picture refresh from the identity provider on creation only.
func (s *ProfileService) EnsureUser(ctx context.Context, externalID, email, name, picture, role string) (*domain.User, error) {
	if externalID == "" {
		return nil, fieldErr("external_id", "required")
	}
	u, err := repo.GetUserByExternalID(ctx, s.DB, externalID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if role != domain.RoleClient && role != domain.RoleWriter {
		return nil, fieldErr("role", "must be client or writer")
	}
	u = &domain.User{
		ExternalID: externalID,
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Name:       nameCaser.String(clipRunes(strings.TrimSpace(name), maxNameLen)),
		Picture:    clipRunes(strings.TrimSpace(picture), maxPictureLen),
		Role:       role,
	}
	created, err := repo.CreateUser(ctx, s.DB, u)
	if err != nil {
		// Two first requests racing on the same subject: the loser re-reads.
		if existing, lookupErr := repo.GetUserByExternalID(ctx, s.DB, externalID); lookupErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return created, nil
}

// Get returns the public profile of a user together with their portfolio, if
// one exists. Contact details are never part of the answer.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.PublicProfile, *domain.WriterPortfolio, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	p := u.Public()
	pf, err := repo.GetPortfolio(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &p, nil, nil
		}
		return nil, nil, err
	}
	return &p, pf, nil
}

// UpdateProfileInput carries the user-editable profile fields. Nil pointers
// mean "leave as is".
type UpdateProfileInput struct {
	Name    *string
	Picture *string
}

// UpdateProfile applies the provided fields to the actor's own profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) error {
	fields := map[string]any{}
	if in.Name != nil {
		name := clipRunes(strings.TrimSpace(*in.Name), maxNameLen)
		if name == "" {
			return fieldErr("name", "must not be empty")
		}
		fields["name"] = nameCaser.String(name)
	}
	if in.Picture != nil {
		fields["picture"] = clipRunes(strings.TrimSpace(*in.Picture), maxPictureLen)
	}
	if len(fields) == 0 {
		return fieldErr("body", "no fields to update")
	}
	if err := repo.UpdateUserProfile(ctx, s.DB, userID, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// SetWriterStatus changes the actor's availability. Only writer accounts have
// a status to change.
func (s *ProfileService) SetWriterStatus(ctx context.Context, userID, status string) error {
	switch status {
	case domain.WriterActive, domain.WriterBusy, domain.WriterInactive:
	default:
		return fieldErr("status", "must be active, busy, or inactive")
	}
	if err := repo.UpdateWriterStatus(ctx, s.DB, userID, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// SetContact validates and seals the actor's contact channel. The plaintext
// number is encrypted before it touches the database and is only ever opened
// again for the writer who accepts one of the client's requests.
func (s *ProfileService) SetContact(ctx context.Context, userID, contact string) error {
	contact = strings.TrimSpace(contact)
	if !contactRe.MatchString(contact) {
		return fieldErr("contact", "must be an international phone number like +14155550123")
	}
	if s.Vault == nil || !s.Vault.Enabled() {
		return fieldErr("contact", "contact storage is not configured")
	}
	sealed, err := s.Vault.Seal(contact)
	if err != nil {
		return err
	}
	if err := repo.UpdateContactSealed(ctx, s.DB, userID, sealed); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// UpsertPortfolio creates or replaces the actor's portfolio entry.
func (s *ProfileService) UpsertPortfolio(ctx context.Context, writerID, sampleURL, description string) (*domain.WriterPortfolio, error) {
	sampleURL = clipRunes(strings.TrimSpace(sampleURL), maxSampleURLLen)
	if sampleURL == "" {
		return nil, fieldErr("sample_url", "required")
	}
	if !strings.HasPrefix(sampleURL, "http://") && !strings.HasPrefix(sampleURL, "https://") {
		return nil, fieldErr("sample_url", "must be an http(s) URL")
	}
	description = clipRunes(strings.TrimSpace(description), maxDescriptionLen)

	u, err := repo.GetUser(ctx, s.DB, writerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if u.Role != domain.RoleWriter {
		return nil, ErrNotWriter
	}
	return repo.UpsertPortfolio(ctx, s.DB, writerID, sampleURL, description)
}
