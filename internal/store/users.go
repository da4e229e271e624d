package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-service/internal/domain"
)

func scanUser(row interface{ Scan(...any) error }, u *domain.User) error {
	return row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.LastSeen, &u.CreatedAt)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO marketplace.users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, password_hash, role, last_seen, created_at;
	`
	var created domain.User
	err := scanUser(s.q.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Role), &created)
	if err != nil {
		switch {
		case constraintViolated(err, "users_username_key", "username"):
			return nil, ErrUsernameTaken
		case constraintViolated(err, "users_email_key", "email"):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("store: CreateUser failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, last_seen, created_at
		FROM marketplace.users
		WHERE id = $1;
	`
	var user domain.User
	if err := scanUser(s.q.QueryRowContext(ctx, query, id), &user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: GetUserByID failed to scan row: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, last_seen, created_at
		FROM marketplace.users
		WHERE email = $1;
	`
	var user domain.User
	if err := scanUser(s.q.QueryRowContext(ctx, query, email), &user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: GetUserByEmail failed to scan row: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) TouchLastSeen(ctx context.Context, id int64) error {
	query := `UPDATE marketplace.users SET last_seen = CURRENT_TIMESTAMP WHERE id = $1;`
	result, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: TouchLastSeen failed to execute update: %w", err)
	}
	return rowsAffected(result, "TouchLastSeen", ErrUserNotFound)
}

// ListSellersWithStock returns sellers having at least one product in stock,
// with their profile when one exists.
func (s *PostgresStore) ListSellersWithStock(ctx context.Context) ([]domain.SellerSummary, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.role, u.last_seen, u.created_at,
			sp.id, sp.shop_name, sp.shop_logo, sp.about, sp.location, sp.open_hours, sp.rating
		FROM marketplace.users u
		LEFT JOIN marketplace.seller_profiles sp ON sp.user_id = u.id
		WHERE u.role = 'seller'
			AND EXISTS (
				SELECT 1 FROM marketplace.products p
				WHERE p.seller_id = u.id AND p.stock_quantity > 0
			)
		ORDER BY u.id ASC;
	`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListSellersWithStock failed to query sellers: %w", err)
	}
	defer rows.Close()

	sellers := []domain.SellerSummary{}
	for rows.Next() {
		var (
			summary   domain.SellerSummary
			profileID sql.NullInt64
			rating    sql.NullFloat64
			profile   domain.SellerProfile
		)
		if err := rows.Scan(
			&summary.User.ID, &summary.User.Username, &summary.User.Email, &summary.User.PasswordHash,
			&summary.User.Role, &summary.User.LastSeen, &summary.User.CreatedAt,
			&profileID, &profile.ShopName, &profile.ShopLogo, &profile.About, &profile.Location,
			&profile.OpenHours, &rating,
		); err != nil {
			return nil, fmt.Errorf("store: ListSellersWithStock failed to scan seller row: %w", err)
		}
		if profileID.Valid {
			profile.ID = profileID.Int64
			profile.UserID = summary.User.ID
			profile.Rating = rating.Float64
			summary.Profile = &profile
		}
		sellers = append(sellers, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListSellersWithStock iteration error: %w", err)
	}
	return sellers, nil
}

// --- Seller profiles ---

const sellerProfileSelect = `
		SELECT id, user_id, shop_name, shop_logo, shop_logo_public_id, about, phone_number, location, open_hours, rating
		FROM marketplace.seller_profiles
		WHERE user_id = $1;
	`

func scanSellerProfile(row interface{ Scan(...any) error }, p *domain.SellerProfile) error {
	return row.Scan(
		&p.ID, &p.UserID, &p.ShopName, &p.ShopLogo, &p.ShopLogoPublicID, &p.About,
		&p.PhoneNumber, &p.Location, &p.OpenHours, &p.Rating,
	)
}

func (s *PostgresStore) GetOrCreateSellerProfile(ctx context.Context, userID int64) (*domain.SellerProfile, error) {
	var profile domain.SellerProfile
	err := scanSellerProfile(s.q.QueryRowContext(ctx, sellerProfileSelect, userID), &profile)
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: GetOrCreateSellerProfile failed to scan row: %w", err)
	}

	insertQuery := `
		INSERT INTO marketplace.seller_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING;
	`
	if _, err := s.q.ExecContext(ctx, insertQuery, userID); err != nil {
		return nil, fmt.Errorf("store: GetOrCreateSellerProfile failed to insert profile: %w", err)
	}
	if err := scanSellerProfile(s.q.QueryRowContext(ctx, sellerProfileSelect, userID), &profile); err != nil {
		return nil, fmt.Errorf("store: GetOrCreateSellerProfile failed to read profile: %w", err)
	}
	return &profile, nil
}

func (s *PostgresStore) UpdateSellerProfile(ctx context.Context, profile *domain.SellerProfile) (*domain.SellerProfile, error) {
	query := `
		UPDATE marketplace.seller_profiles
		SET shop_name = $1, shop_logo = $2, shop_logo_public_id = $3, about = $4,
			phone_number = $5, location = $6, open_hours = $7
		WHERE id = $8
		RETURNING id, user_id, shop_name, shop_logo, shop_logo_public_id, about, phone_number, location, open_hours, rating;
	`
	var updated domain.SellerProfile
	row := s.q.QueryRowContext(ctx, query,
		profile.ShopName, profile.ShopLogo, profile.ShopLogoPublicID, profile.About,
		profile.PhoneNumber, profile.Location, profile.OpenHours, profile.ID,
	)
	if err := scanSellerProfile(row, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("store: UpdateSellerProfile failed to scan row: %w", err)
	}
	return &updated, nil
}

func (s *PostgresStore) ListSellerImages(ctx context.Context, profileID int64) ([]domain.SellerImage, error) {
	query := `
		SELECT id, seller_profile_id, image_url, public_id, description, created_at
		FROM marketplace.seller_images
		WHERE seller_profile_id = $1
		ORDER BY id ASC;
	`
	rows, err := s.q.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("store: ListSellerImages failed to query images: %w", err)
	}
	defer rows.Close()

	images := []domain.SellerImage{}
	for rows.Next() {
		var img domain.SellerImage
		if err := rows.Scan(&img.ID, &img.SellerProfileID, &img.ImageURL, &img.PublicID, &img.Description, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: ListSellerImages failed to scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListSellerImages iteration error: %w", err)
	}
	return images, nil
}

func (s *PostgresStore) CreateSellerImage(ctx context.Context, image *domain.SellerImage) (*domain.SellerImage, error) {
	query := `
		INSERT INTO marketplace.seller_images (seller_profile_id, image_url, public_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, seller_profile_id, image_url, public_id, description, created_at;
	`
	var created domain.SellerImage
	err := s.q.QueryRowContext(ctx, query, image.SellerProfileID, image.ImageURL, image.PublicID, image.Description).Scan(
		&created.ID, &created.SellerProfileID, &created.ImageURL, &created.PublicID, &created.Description, &created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store: CreateSellerImage failed to scan row: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) UpdateSellerImage(ctx context.Context, image *domain.SellerImage) error {
	query := `UPDATE marketplace.seller_images SET image_url = $1, public_id = $2 WHERE id = $3;`
	result, err := s.q.ExecContext(ctx, query, image.ImageURL, image.PublicID, image.ID)
	if err != nil {
		return fmt.Errorf("store: UpdateSellerImage failed to execute update: %w", err)
	}
	return rowsAffected(result, "UpdateSellerImage", ErrSellerImageNotFound)
}

// --- Buyer profiles ---

const buyerProfileSelect = `
		SELECT id, user_id, full_name, billing_address, city, postal_code, country, payment_method,
			profile_image, profile_image_public_id
		FROM marketplace.buyer_profiles
		WHERE user_id = $1;
	`

func scanBuyerProfile(row interface{ Scan(...any) error }, p *domain.BuyerProfile) error {
	return row.Scan(
		&p.ID, &p.UserID, &p.FullName, &p.BillingAddress, &p.City, &p.PostalCode, &p.Country,
		&p.PaymentMethod, &p.ProfileImage, &p.ProfileImagePublicID,
	)
}

func (s *PostgresStore) GetOrCreateBuyerProfile(ctx context.Context, userID int64) (*domain.BuyerProfile, error) {
	var profile domain.BuyerProfile
	err := scanBuyerProfile(s.q.QueryRowContext(ctx, buyerProfileSelect, userID), &profile)
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: GetOrCreateBuyerProfile failed to scan row: %w", err)
	}

	insertQuery := `
		INSERT INTO marketplace.buyer_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING;
	`
	if _, err := s.q.ExecContext(ctx, insertQuery, userID); err != nil {
		return nil, fmt.Errorf("store: GetOrCreateBuyerProfile failed to insert profile: %w", err)
	}
	if err := scanBuyerProfile(s.q.QueryRowContext(ctx, buyerProfileSelect, userID), &profile); err != nil {
		return nil, fmt.Errorf("store: GetOrCreateBuyerProfile failed to read profile: %w", err)
	}
	return &profile, nil
}

func (s *PostgresStore) UpdateBuyerProfile(ctx context.Context, profile *domain.BuyerProfile) (*domain.BuyerProfile, error) {
	query := `
		UPDATE marketplace.buyer_profiles
		SET full_name = $1, billing_address = $2, city = $3, postal_code = $4, country = $5,
			payment_method = $6, profile_image = $7, profile_image_public_id = $8
		WHERE id = $9
		RETURNING id, user_id, full_name, billing_address, city, postal_code, country, payment_method,
			profile_image, profile_image_public_id;
	`
	var updated domain.BuyerProfile
	row := s.q.QueryRowContext(ctx, query,
		profile.FullName, profile.BillingAddress, profile.City, profile.PostalCode, profile.Country,
		profile.PaymentMethod, profile.ProfileImage, profile.ProfileImagePublicID, profile.ID,
	)
	if err := scanBuyerProfile(row, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("store: UpdateBuyerProfile failed to scan row: %w", err)
	}
	return &updated, nil
}
