package domain

import "time"

// Role is the marketplace side a user registered for.
type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleSeller || r == RoleBuyer
}

// User is an account. PasswordHash is never serialized.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	LastSeen     time.Time `json:"last_seen"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	ID   int64
	Role Role
}

// Actor returns the acting identity of u.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// IsSeller reports whether the actor acts as a seller.
func (a Actor) IsSeller() bool { return a.Role == RoleSeller }

// IsBuyer reports whether the actor acts as a buyer.
func (a Actor) IsBuyer() bool { return a.Role == RoleBuyer }

// SellerProfile holds shop metadata for a seller (1:1 with User).
type SellerProfile struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"user_id"`
	ShopName         *string       `json:"shop_name,omitempty"`
	ShopLogo         *string       `json:"shop_logo,omitempty"`
	ShopLogoPublicID *string       `json:"-"`
	About            *string       `json:"about,omitempty"`
	PhoneNumber      *string       `json:"phone_number,omitempty"`
	Location         *string       `json:"location,omitempty"`
	OpenHours        *string       `json:"open_hours,omitempty"`
	Rating           float64       `json:"rating"`
	Images           []SellerImage `json:"images,omitempty"`
}

// BuyerProfile holds billing metadata for a buyer (1:1 with User).
type BuyerProfile struct {
	ID                   int64   `json:"id"`
	UserID               int64   `json:"user_id"`
	FullName             *string `json:"full_name,omitempty"`
	BillingAddress       *string `json:"billing_address,omitempty"`
	City                 *string `json:"city,omitempty"`
	PostalCode           *string `json:"postal_code,omitempty"`
	Country              *string `json:"country,omitempty"`
	PaymentMethod        *string `json:"payment_method,omitempty"`
	ProfileImage         *string `json:"profile_image,omitempty"`
	ProfileImagePublicID *string `json:"-"`
}

// SellerSummary is a seller as shown on the buyer-facing seller list.
type SellerSummary struct {
	User    User           `json:"user"`
	Profile *SellerProfile `json:"profile,omitempty"`
}
