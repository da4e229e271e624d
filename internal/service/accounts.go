package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/media"
	"marketplace-service/internal/store"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 25
	minPasswordLength = 6
	// bcrypt only accepts passwords up to 72 bytes.
	maxPasswordBytes = 72
	maxAboutLength    = 200
	maxOpenHours      = 50
)

var phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Role            domain.Role
}

// SellerProfileInput carries the editable text fields of a seller profile.
type SellerProfileInput struct {
	ShopName    string
	About       string
	PhoneNumber string
	Location    string
	OpenHours   string
}

// BuyerProfileInput carries the editable fields of a buyer profile.
type BuyerProfileInput struct {
	FullName       string
	BillingAddress string
	City           string
	PostalCode     string
	Country        string
	PaymentMethod  string
}

// SellerProfileView is a seller profile as shown to a viewer.
type SellerProfileView struct {
	Seller   domain.User          `json:"seller"`
	Profile  domain.SellerProfile `json:"profile"`
	Editable bool                 `json:"editable"`
}

// AccountService handles registration, login and profiles.
type AccountService struct {
	repo  store.Repository
	media media.Store
	// cost is the bcrypt work factor.
	cost int
}

func NewAccountService(repo store.Repository, mediaStore media.Store) *AccountService {
	return &AccountService{repo: repo, media: mediaStore, cost: bcrypt.DefaultCost}
}

func (in *RegisterInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	n := utf8.RuneCountInString(in.Username)
	switch {
	case n < minUsernameLength || n > maxUsernameLength:
		return validationErrorf("username must be %d to %d characters", minUsernameLength, maxUsernameLength)
	case !strings.Contains(in.Email, "@"):
		return validationErrorf("email is invalid")
	case len(in.Password) < minPasswordLength:
		return validationErrorf("password must be at least %d characters", minPasswordLength)
	case len(in.Password) > maxPasswordBytes:
		return validationErrorf("password must be at most %d bytes", maxPasswordBytes)
	case in.Password != in.ConfirmPassword:
		return validationErrorf("passwords do not match")
	case !in.Role.Valid():
		return validationErrorf("role must be %q or %q", domain.RoleSeller, domain.RoleBuyer)
	}
	return nil
}

// Register creates an account. Sellers get their profile in the same transaction.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}
	var user *domain.User
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		user, err = tx.CreateUser(ctx, &domain.User{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: string(hash),
			Role:         in.Role,
		})
		if err != nil {
			return err
		}
		if user.Role == domain.RoleSeller {
			_, err = tx.GetOrCreateSellerProfile(ctx, user.ID)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) || errors.Is(err, store.ErrEmailTaken) {
			return nil, fmt.Errorf("register: %w: %w", domain.ErrInvalidOperation, err)
		}
		return nil, fmt.Errorf("register: %w", err)
	}
	log.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Authenticate checks credentials and records the login time.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.repo.TouchLastSeen(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return user, nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// ListSellers returns sellers with at least one product in stock.
func (s *AccountService) ListSellers(ctx context.Context) ([]domain.SellerSummary, error) {
	sellers, err := s.repo.ListSellersWithStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}
	return sellers, nil
}

// --- Seller profile ---

// GetSellerProfile loads a seller's profile with its gallery. viewer may be nil.
func (s *AccountService) GetSellerProfile(ctx context.Context, viewer *domain.Actor, sellerID int64) (*SellerProfileView, error) {
	seller, err := s.repo.GetUserByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("seller profile: %w", err)
	}
	if seller.Role != domain.RoleSeller {
		return nil, fmt.Errorf("seller profile: user %d is not a seller: %w", sellerID, domain.ErrNotFound)
	}
	profile, err := s.repo.GetOrCreateSellerProfile(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("seller profile: %w", err)
	}
	if profile.Images, err = s.repo.ListSellerImages(ctx, profile.ID); err != nil {
		return nil, fmt.Errorf("seller profile: %w", err)
	}
	return &SellerProfileView{
		Seller:   *seller,
		Profile:  *profile,
		Editable: viewer != nil && viewer.ID == sellerID,
	}, nil
}

func (in *SellerProfileInput) validate() error {
	in.ShopName = strings.TrimSpace(in.ShopName)
	in.Location = strings.TrimSpace(in.Location)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	switch {
	case in.ShopName == "":
		return validationErrorf("shop name is required")
	case utf8.RuneCountInString(in.ShopName) > maxNameLength:
		return validationErrorf("shop name exceeds %d characters", maxNameLength)
	case utf8.RuneCountInString(in.About) > maxAboutLength:
		return validationErrorf("about exceeds %d characters", maxAboutLength)
	case in.PhoneNumber != "" && !phonePattern.MatchString(in.PhoneNumber):
		return validationErrorf("phone number must be 10 to 15 digits with an optional leading +")
	case in.Location == "":
		return validationErrorf("location is required")
	case utf8.RuneCountInString(in.OpenHours) > maxOpenHours:
		return validationErrorf("open hours exceed %d characters", maxOpenHours)
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *AccountService) UpdateSellerProfile(ctx context.Context, actor domain.Actor, in SellerProfileInput) (*domain.SellerProfile, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var updated *domain.SellerProfile
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		profile, err := tx.GetOrCreateSellerProfile(ctx, actor.ID)
		if err != nil {
			return err
		}
		profile.ShopName = optional(in.ShopName)
		profile.About = optional(in.About)
		profile.PhoneNumber = optional(in.PhoneNumber)
		profile.Location = optional(in.Location)
		profile.OpenHours = optional(in.OpenHours)
		updated, err = tx.UpdateSellerProfile(ctx, profile)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update seller profile: %w", err)
	}
	return updated, nil
}

// SetShopLogo uploads a new logo and removes the previous one.
func (s *AccountService) SetShopLogo(ctx context.Context, actor domain.Actor, upload Upload) (*domain.SellerProfile, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	key, err := upload.objectKey()
	if err != nil {
		return nil, err
	}
	obj, err := s.media.Put(ctx, upload.Body, "shop_logos", key)
	if err != nil {
		return nil, fmt.Errorf("set shop logo: %w", err)
	}
	var (
		updated *domain.SellerProfile
		old     *string
	)
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		profile, err := tx.GetOrCreateSellerProfile(ctx, actor.ID)
		if err != nil {
			return err
		}
		old = profile.ShopLogoPublicID
		profile.ShopLogo = &obj.URL
		profile.ShopLogoPublicID = &obj.Handle
		updated, err = tx.UpdateSellerProfile(ctx, profile)
		return err
	})
	if err != nil {
		s.discardMedia(ctx, &obj.Handle)
		return nil, fmt.Errorf("set shop logo: %w", err)
	}
	s.discardMedia(ctx, old)
	return updated, nil
}

// SetSellerImage stores upload in gallery slot (0-based), replacing an
// occupied slot or appending while the gallery has fewer than four images.
func (s *AccountService) SetSellerImage(ctx context.Context, actor domain.Actor, slot int, upload Upload) (*domain.SellerImage, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	if slot < 0 || slot >= domain.MaxImagesPerOwner {
		return nil, validationErrorf("image slot must be between 0 and %d", domain.MaxImagesPerOwner-1)
	}
	key, err := upload.objectKey()
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.GetOrCreateSellerProfile(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("set seller image: %w", err)
	}
	images, err := s.repo.ListSellerImages(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("set seller image: %w", err)
	}
	if slot >= len(images) && len(images) >= domain.MaxImagesPerOwner {
		return nil, invalidOperationf("gallery already has %d images", domain.MaxImagesPerOwner)
	}

	obj, err := s.media.Put(ctx, upload.Body, "seller_images", key)
	if err != nil {
		return nil, fmt.Errorf("set seller image: %w", err)
	}
	var (
		saved    *domain.SellerImage
		replaced *string
	)
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		if err := tx.LockSeller(ctx, actor.ID); err != nil {
			return err
		}
		current, err := tx.ListSellerImages(ctx, profile.ID)
		if err != nil {
			return err
		}
		if slot < len(current) {
			img := current[slot]
			replaced = img.PublicID
			img.ImageURL = obj.URL
			img.PublicID = &obj.Handle
			if err := tx.UpdateSellerImage(ctx, &img); err != nil {
				return err
			}
			saved = &img
			return nil
		}
		if len(current) >= domain.MaxImagesPerOwner {
			return invalidOperationf("gallery already has %d images", domain.MaxImagesPerOwner)
		}
		saved, err = tx.CreateSellerImage(ctx, &domain.SellerImage{
			SellerProfileID: profile.ID,
			ImageURL:        obj.URL,
			PublicID:        &obj.Handle,
		})
		return err
	})
	if err != nil {
		s.discardMedia(ctx, &obj.Handle)
		return nil, fmt.Errorf("set seller image: %w", err)
	}
	s.discardMedia(ctx, replaced)
	return saved, nil
}

// --- Buyer profile ---

func (s *AccountService) GetBuyerProfile(ctx context.Context, actor domain.Actor) (*domain.BuyerProfile, error) {
	if !actor.IsBuyer() {
		return nil, permissionDeniedf("only buyers have a buyer profile")
	}
	profile, err := s.repo.GetOrCreateBuyerProfile(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("buyer profile: %w", err)
	}
	return profile, nil
}

func (s *AccountService) UpdateBuyerProfile(ctx context.Context, actor domain.Actor, in BuyerProfileInput) (*domain.BuyerProfile, error) {
	if !actor.IsBuyer() {
		return nil, permissionDeniedf("only buyers have a buyer profile")
	}
	if utf8.RuneCountInString(in.FullName) > maxNameLength {
		return nil, validationErrorf("full name exceeds %d characters", maxNameLength)
	}
	var updated *domain.BuyerProfile
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		profile, err := tx.GetOrCreateBuyerProfile(ctx, actor.ID)
		if err != nil {
			return err
		}
		profile.FullName = optional(in.FullName)
		profile.BillingAddress = optional(in.BillingAddress)
		profile.City = optional(in.City)
		profile.PostalCode = optional(in.PostalCode)
		profile.Country = optional(in.Country)
		profile.PaymentMethod = optional(in.PaymentMethod)
		updated, err = tx.UpdateBuyerProfile(ctx, profile)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update buyer profile: %w", err)
	}
	return updated, nil
}

// SetBuyerProfileImage replaces the profile image. The previous remote object
// is deleted before the new one is uploaded.
func (s *AccountService) SetBuyerProfileImage(ctx context.Context, actor domain.Actor, upload Upload) (*domain.BuyerProfile, error) {
	if !actor.IsBuyer() {
		return nil, permissionDeniedf("only buyers have a buyer profile")
	}
	key, err := upload.objectKey()
	if err != nil {
		return nil, err
	}
	profile, err := s.repo.GetOrCreateBuyerProfile(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("set profile image: %w", err)
	}
	if profile.ProfileImagePublicID != nil {
		if err := s.media.Delete(ctx, *profile.ProfileImagePublicID); err != nil {
			return nil, fmt.Errorf("set profile image: remove previous image: %w", err)
		}
	}
	obj, err := s.media.Put(ctx, upload.Body, "profile_images", key)
	if err != nil {
		return nil, fmt.Errorf("set profile image: %w", err)
	}
	profile.ProfileImage = &obj.URL
	profile.ProfileImagePublicID = &obj.Handle
	updated, err := s.repo.UpdateBuyerProfile(ctx, profile)
	if err != nil {
		s.discardMedia(ctx, &obj.Handle)
		return nil, fmt.Errorf("set profile image: %w", err)
	}
	return updated, nil
}

func (s *AccountService) discardMedia(ctx context.Context, handle *string) {
	if handle == nil || *handle == "" {
		return
	}
	if err := s.media.Delete(ctx, *handle); err != nil {
		log.Warn("failed to delete media object", "handle", *handle, "err", err)
	}
}
