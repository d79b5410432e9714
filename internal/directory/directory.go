package directory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teampoint/botcore/internal/cache"
	"github.com/teampoint/botcore/internal/models"
	"github.com/teampoint/botcore/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ptr[T any](v T) *T { return &v }

// Directory is the roster of everyone the bot has seen, looked up by
// numeric id or @username. Reads go through the cache; registration
// is insert-or-ignore so re-seeing a user is free.
type Directory struct {
	db    *gorm.DB
	cache cache.Cache[int64, models.User]
}

func New(db *gorm.DB) *Directory {
	return &Directory{
		db: db,
		cache: cache.NewCache[int64, models.User](&cache.CacheOpts{
			TimeToLive:    3 * time.Minute,
			CleanInterval: ptr(2 * time.Hour),
			Revaluate:     ptr(true),
			Prefix:        "user-cache",
		}),
	}
}

// Register records the identity on first contact. Existing entries are
// left alone; FirstSeen keeps its original value.
func (d *Directory) Register(id types.Identity) error {
	user := models.User{
		ID:        id.ID,
		FullName:  id.DisplayName,
		Username:  strings.TrimPrefix(id.Username, "@"),
		FirstSeen: time.Now(),
	}
	err := d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("register user %d: %w", id.ID, err)
	}
	return nil
}

// Get resolves a numeric id to the stored identity.
func (d *Directory) Get(userID int64) (types.Identity, error) {
	if user, ok := d.cache.Get(userID); ok {
		return identityOf(user), nil
	}
	var user models.User
	err := d.db.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Identity{}, types.ErrNotFound
	}
	if err != nil {
		return types.Identity{}, fmt.Errorf("lookup user %d: %w", userID, err)
	}
	d.cache.Set(userID, user)
	return identityOf(user), nil
}

// Lookup resolves "12345" or "@name" (the @ is optional) to an
// identity, the way operators type targets in commands.
func (d *Directory) Lookup(identifier string) (types.Identity, error) {
	identifier = strings.TrimPrefix(strings.TrimSpace(identifier), "@")
	if identifier == "" {
		return types.Identity{}, types.ErrNotFound
	}
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return d.Get(id)
	}
	var user models.User
	err := d.db.First(&user, "username = ?", identifier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Identity{}, types.ErrNotFound
	}
	if err != nil {
		return types.Identity{}, fmt.Errorf("lookup user %q: %w", identifier, err)
	}
	d.cache.Set(user.ID, user)
	return identityOf(user), nil
}

func (d *Directory) Count() (int64, error) {
	var count int64
	if err := d.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// NewSince counts users first seen after the cutoff.
func (d *Directory) NewSince(cutoff time.Time) (int64, error) {
	var count int64
	err := d.db.Model(&models.User{}).
		Where("first_seen >= ?", cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count new users: %w", err)
	}
	return count, nil
}

// AllIDs lists every known user id, for mass operations.
func (d *Directory) AllIDs() ([]int64, error) {
	var ids []int64
	if err := d.db.Model(&models.User{}).Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

func identityOf(user models.User) types.Identity {
	return types.Identity{
		ID:          user.ID,
		DisplayName: user.FullName,
		Username:    user.Username,
	}
}
