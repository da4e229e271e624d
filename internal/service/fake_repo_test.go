package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/media"
	"marketplace-service/internal/store"
)

// fakeRepo is an in-memory store.Repository. WithTx restores a snapshot when
// fn fails, so tests can observe all-or-nothing behavior.
type fakeRepo struct {
	mu sync.Mutex

	nextID int64
	clock  time.Time

	users          map[int64]domain.User
	sellerProfiles map[int64]domain.SellerProfile // by user id
	sellerImages   map[int64]domain.SellerImage
	buyerProfiles  map[int64]domain.BuyerProfile // by user id
	categories     map[int64]domain.Category
	products       map[int64]domain.Product
	productImages  map[int64]domain.ProductImage
	messages       map[int64]domain.Message

	// failOn makes the named method return the error.
	failOn map[string]error
	// markReadCalls counts MarkRead calls that changed rows.
	markReadCalls int
	// lockedSellers records every LockSeller call in order.
	lockedSellers []int64
	sellerLocks   map[int64]*sync.Mutex
}

var _ store.Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		clock:          time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		users:          map[int64]domain.User{},
		sellerProfiles: map[int64]domain.SellerProfile{},
		sellerImages:   map[int64]domain.SellerImage{},
		buyerProfiles:  map[int64]domain.BuyerProfile{},
		categories:     map[int64]domain.Category{},
		products:       map[int64]domain.Product{},
		productImages:  map[int64]domain.ProductImage{},
		messages:       map[int64]domain.Message{},
		failOn:         map[string]error{},
		sellerLocks:    map[int64]*sync.Mutex{},
	}
}

func (r *fakeRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *fakeRepo) now() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeRepo) fail(op string) error {
	return r.failOn[op]
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r *fakeRepo) snapshot() *fakeRepo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &fakeRepo{
		nextID:         r.nextID,
		clock:          r.clock,
		users:          copyMap(r.users),
		sellerProfiles: copyMap(r.sellerProfiles),
		sellerImages:   copyMap(r.sellerImages),
		buyerProfiles:  copyMap(r.buyerProfiles),
		categories:     copyMap(r.categories),
		products:       copyMap(r.products),
		productImages:  copyMap(r.productImages),
		messages:       copyMap(r.messages),
	}
}

func (r *fakeRepo) restore(s *fakeRepo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID, r.clock = s.nextID, s.clock
	r.users, r.sellerProfiles, r.sellerImages = s.users, s.sellerProfiles, s.sellerImages
	r.buyerProfiles, r.categories, r.products = s.buyerProfiles, s.categories, s.products
	r.productImages, r.messages = s.productImages, s.messages
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(tx store.Repository) error) error {
	tx := &fakeTx{fakeRepo: r, snap: r.snapshot()}
	defer tx.unlock()
	if err := fn(tx); err != nil {
		r.restore(tx.snap)
		return err
	}
	return nil
}

// LockSeller outside a transaction only records the call.
func (r *fakeRepo) LockSeller(_ context.Context, sellerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("LockSeller"); err != nil {
		return err
	}
	r.lockedSellers = append(r.lockedSellers, sellerID)
	return nil
}

func (r *fakeRepo) sellerLock(sellerID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.sellerLocks[sellerID]
	if !ok {
		l = &sync.Mutex{}
		r.sellerLocks[sellerID] = l
	}
	return l
}

// fakeTx is the repository handed to WithTx callbacks. Seller locks taken
// through it are held until the transaction ends.
type fakeTx struct {
	*fakeRepo
	snap *fakeRepo
	held []*sync.Mutex
}

var _ store.Repository = (*fakeTx)(nil)

func (t *fakeTx) WithTx(_ context.Context, fn func(tx store.Repository) error) error {
	return fn(t)
}

func (t *fakeTx) LockSeller(ctx context.Context, sellerID int64) error {
	l := t.sellerLock(sellerID)
	l.Lock()
	t.held = append(t.held, l)
	if err := t.fakeRepo.LockSeller(ctx, sellerID); err != nil {
		return err
	}
	// Writes committed while waiting must survive a later rollback.
	if len(t.held) == 1 {
		t.snap = t.snapshot()
	}
	return nil
}

func (t *fakeTx) unlock() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
}

// --- users ---

func (r *fakeRepo) addUser(username string, role domain.Role) domain.User {
	u, err := r.CreateUser(context.Background(), &domain.User{
		Username: username, Email: username + "@example.com", PasswordHash: "x", Role: role,
	})
	if err != nil {
		panic(err)
	}
	return *u
}

func (r *fakeRepo) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("CreateUser"); err != nil {
		return nil, err
	}
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, store.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return nil, store.ErrEmailTaken
		}
	}
	u := *user
	u.ID = r.id()
	u.CreatedAt = r.now()
	u.LastSeen = u.CreatedAt
	r.users[u.ID] = u
	return &u, nil
}

func (r *fakeRepo) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

func (r *fakeRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (r *fakeRepo) TouchLastSeen(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.LastSeen = r.now()
	r.users[id] = u
	return nil
}

func (r *fakeRepo) ListSellersWithStock(_ context.Context) ([]domain.SellerSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stocked := map[int64]bool{}
	for _, p := range r.products {
		if p.StockQuantity > 0 {
			stocked[p.SellerID] = true
		}
	}
	var out []domain.SellerSummary
	for id := range stocked {
		summary := domain.SellerSummary{User: r.users[id]}
		if p, ok := r.sellerProfiles[id]; ok {
			summary.Profile = &p
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID < out[j].User.ID })
	return out, nil
}

func (r *fakeRepo) GetOrCreateSellerProfile(_ context.Context, userID int64) (*domain.SellerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("GetOrCreateSellerProfile"); err != nil {
		return nil, err
	}
	p, ok := r.sellerProfiles[userID]
	if !ok {
		p = domain.SellerProfile{ID: r.id(), UserID: userID}
		r.sellerProfiles[userID] = p
	}
	return &p, nil
}

func (r *fakeRepo) UpdateSellerProfile(_ context.Context, profile *domain.SellerProfile) (*domain.SellerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sellerProfiles[profile.UserID]; !ok {
		return nil, store.ErrProfileNotFound
	}
	p := *profile
	p.Images = nil
	r.sellerProfiles[p.UserID] = p
	return &p, nil
}

func (r *fakeRepo) ListSellerImages(_ context.Context, profileID int64) ([]domain.SellerImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.SellerImage{}
	for _, img := range r.sellerImages {
		if img.SellerProfileID == profileID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) CreateSellerImage(_ context.Context, image *domain.SellerImage) (*domain.SellerImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img := *image
	img.ID = r.id()
	img.CreatedAt = r.now()
	r.sellerImages[img.ID] = img
	return &img, nil
}

func (r *fakeRepo) UpdateSellerImage(_ context.Context, image *domain.SellerImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.sellerImages[image.ID]
	if !ok {
		return store.ErrSellerImageNotFound
	}
	img.ImageURL, img.PublicID = image.ImageURL, image.PublicID
	r.sellerImages[img.ID] = img
	return nil
}

func (r *fakeRepo) GetOrCreateBuyerProfile(_ context.Context, userID int64) (*domain.BuyerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.buyerProfiles[userID]
	if !ok {
		p = domain.BuyerProfile{ID: r.id(), UserID: userID}
		r.buyerProfiles[userID] = p
	}
	return &p, nil
}

func (r *fakeRepo) UpdateBuyerProfile(_ context.Context, profile *domain.BuyerProfile) (*domain.BuyerProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buyerProfiles[profile.UserID]; !ok {
		return nil, store.ErrProfileNotFound
	}
	p := *profile
	r.buyerProfiles[p.UserID] = p
	return &p, nil
}

// --- categories ---

func (r *fakeRepo) CreateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if category.Name == domain.UncategorizedName {
		for _, c := range r.categories {
			if c.SellerID == category.SellerID && c.IsSentinel() {
				return nil, store.ErrCategoryNameExists
			}
		}
	}
	c := *category
	c.ID = r.id()
	c.CreatedAt = r.now()
	c.UpdatedAt = c.CreatedAt
	r.categories[c.ID] = c
	return &c, nil
}

func (r *fakeRepo) GetCategoryByID(_ context.Context, id int64) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, store.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *fakeRepo) ListCategoriesBySeller(_ context.Context, sellerID int64) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Category{}
	for _, c := range r.categories {
		if c.SellerID == sellerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) UpdateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[category.ID]
	if !ok {
		return nil, store.ErrCategoryNotFound
	}
	if category.Name == domain.UncategorizedName && !c.IsSentinel() {
		for _, other := range r.categories {
			if other.SellerID == c.SellerID && other.IsSentinel() {
				return nil, store.ErrCategoryNameExists
			}
		}
	}
	c.Name, c.ParentID, c.UpdatedAt = category.Name, category.ParentID, r.now()
	r.categories[c.ID] = c
	return &c, nil
}

func (r *fakeRepo) DeleteCategory(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("DeleteCategory"); err != nil {
		return err
	}
	if _, ok := r.categories[id]; !ok {
		return store.ErrCategoryNotFound
	}
	delete(r.categories, id)
	// ON DELETE SET NULL
	for pid, p := range r.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			r.products[pid] = p
		}
	}
	for cid, c := range r.categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
			r.categories[cid] = c
		}
	}
	return nil
}

func (r *fakeRepo) GetOrCreateSentinelCategory(_ context.Context, sellerID int64) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *domain.Category
	for _, c := range r.categories {
		if c.SellerID == sellerID && c.IsSentinel() && (found == nil || c.ID < found.ID) {
			c := c
			found = &c
		}
	}
	if found != nil {
		return found, nil
	}
	c := domain.Category{ID: r.id(), Name: domain.UncategorizedName, SellerID: sellerID, CreatedAt: r.now()}
	r.categories[c.ID] = c
	return &c, nil
}

func (r *fakeRepo) ReassignProducts(_ context.Context, from, to int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("ReassignProducts"); err != nil {
		return 0, err
	}
	var n int64
	for id, p := range r.products {
		if p.CategoryID != nil && *p.CategoryID == from {
			target := to
			p.CategoryID = &target
			r.products[id] = p
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) ReparentChildren(_ context.Context, from int64, to *int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.categories {
		if c.ParentID != nil && *c.ParentID == from {
			c.ParentID = to
			r.categories[id] = c
			n++
		}
	}
	return n, nil
}

// --- products ---

func (r *fakeRepo) CreateProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := *product
	p.ID = r.id()
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt
	r.products[p.ID] = p
	return &p, nil
}

func (r *fakeRepo) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	return &p, nil
}

func (r *fakeRepo) listProducts(keep func(domain.Product) bool) []domain.Product {
	out := []domain.Product{}
	for _, p := range r.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeRepo) ListProductsBySeller(_ context.Context, sellerID int64) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listProducts(func(p domain.Product) bool { return p.SellerID == sellerID }), nil
}

func (r *fakeRepo) ListProductsByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.listProducts(func(p domain.Product) bool { return want[p.ID] }), nil
}

func (r *fakeRepo) UpdateProduct(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[product.ID]; !ok {
		return nil, store.ErrProductNotFound
	}
	p := *product
	p.UpdatedAt = r.now()
	r.products[p.ID] = p
	return &p, nil
}

func (r *fakeRepo) DeleteProduct(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return store.ErrProductNotFound
	}
	delete(r.products, id)
	for iid, img := range r.productImages {
		if img.ProductID == id {
			delete(r.productImages, iid)
		}
	}
	for mid, m := range r.messages {
		if m.ProductID != nil && *m.ProductID == id {
			m.ProductID = nil
			r.messages[mid] = m
		}
	}
	return nil
}

func (r *fakeRepo) ListProductImages(_ context.Context, productID int64) ([]domain.ProductImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ProductImage{}
	for _, img := range r.productImages {
		if img.ProductID == productID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) GetProductImageByID(_ context.Context, id int64) (*domain.ProductImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.productImages[id]
	if !ok {
		return nil, store.ErrProductImageNotFound
	}
	return &img, nil
}

func (r *fakeRepo) CreateProductImage(_ context.Context, image *domain.ProductImage) (*domain.ProductImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("CreateProductImage"); err != nil {
		return nil, err
	}
	img := *image
	img.ID = r.id()
	img.CreatedAt = r.now()
	r.productImages[img.ID] = img
	return &img, nil
}

func (r *fakeRepo) UpdateProductImage(_ context.Context, image *domain.ProductImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.productImages[image.ID]
	if !ok {
		return store.ErrProductImageNotFound
	}
	img.ImageURL, img.PublicID = image.ImageURL, image.PublicID
	r.productImages[img.ID] = img
	return nil
}

func (r *fakeRepo) DeleteProductImage(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.productImages[id]; !ok {
		return store.ErrProductImageNotFound
	}
	delete(r.productImages, id)
	return nil
}

// --- messages ---

func (r *fakeRepo) CreateMessage(_ context.Context, message *domain.Message) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := *message
	m.ID = r.id()
	m.CreatedAt = r.now()
	r.messages[m.ID] = m
	return &m, nil
}

func (r *fakeRepo) withUsername(m domain.Message) domain.Message {
	m.SenderUsername = r.users[m.SenderID].Username
	return m
}

func (r *fakeRepo) sortedMessages(keep func(domain.Message) bool, desc bool) []domain.Message {
	out := []domain.Message{}
	for _, m := range r.messages {
		if keep(m) {
			out = append(out, r.withUsername(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt) != desc
		}
		return (a.ID < b.ID) != desc
	})
	return out
}

func (r *fakeRepo) ListProductMessages(_ context.Context, productID int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedMessages(func(m domain.Message) bool {
		return m.ProductID != nil && *m.ProductID == productID
	}, true), nil
}

func (r *fakeRepo) CountUnread(_ context.Context, productID, receiverID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.ProductID != nil && *m.ProductID == productID && m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) ListUserMessages(_ context.Context, userID int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedMessages(func(m domain.Message) bool {
		return m.SenderID == userID || m.ReceiverID == userID
	}, true), nil
}

func (r *fakeRepo) ListConversation(_ context.Context, productID, a, b int64) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedMessages(func(m domain.Message) bool {
		if m.ProductID == nil || *m.ProductID != productID {
			return false
		}
		return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
	}, false), nil
}

func (r *fakeRepo) MarkRead(_ context.Context, ids []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail("MarkRead"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if m, ok := r.messages[id]; ok && !m.IsRead {
			m.IsRead = true
			r.messages[id] = m
			n++
		}
	}
	if n > 0 {
		r.markReadCalls++
	}
	return n, nil
}

// fakeMedia is an in-memory media.Store.
type fakeMedia struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

var _ media.Store = (*fakeMedia)(nil)

func newFakeMedia() *fakeMedia {
	return &fakeMedia{objects: map[string][]byte{}}
}

func (m *fakeMedia) Put(_ context.Context, r io.Reader, folder, key string) (media.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return media.Object{}, m.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return media.Object{}, err
	}
	handle := folder + "/" + key
	m.objects[handle] = buf.Bytes()
	return media.Object{Handle: handle, URL: fmt.Sprintf("/media/%s", handle)}, nil
}

func (m *fakeMedia) Delete(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, handle)
	m.deleted = append(m.deleted, handle)
	return nil
}
