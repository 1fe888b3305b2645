package services

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/types"
)

// avatarPalette backs the generated initials avatars.
var avatarPalette = []color.NRGBA{
	{R: 0x2E, G: 0x6F, B: 0x9E, A: 0xFF},
	{R: 0x3B, G: 0x8C, B: 0x6E, A: 0xFF},
	{R: 0x9E, G: 0x5A, B: 0x2E, A: 0xFF},
	{R: 0x6E, G: 0x4B, B: 0x8C, A: 0xFF},
	{R: 0xB0, G: 0x3A, B: 0x48, A: 0xFF},
	{R: 0x4A, G: 0x5D, B: 0x23, A: 0xFF},
}

type AvatarService interface {
	// CreateUserAvatar renders an initials avatar and records its path on the
	// user row. Called during registration inside the signup transaction.
	CreateUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) error
	GenerateUserAvatar(user *types.User) (bytes.Buffer, error)
}

type avatarService struct {
	db        *gorm.DB
	log       *logger.Logger
	userRepo  repos.UserRepo
	mediaRoot string
	fontFace  font.Face
}

func NewAvatarService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, mediaRoot string) (AvatarService, error) {
	serviceLog := log.With("service", "AvatarService")

	fontPath := strings.TrimSpace(os.Getenv("AVATAR_FONT"))
	if fontPath == "" {
		return nil, fmt.Errorf("env var AVATAR_FONT is empty")
	}
	serviceLog.Info("loading avatar font", "font", fontPath)
	face, err := loadFontFace(fontPath, 206)
	if err != nil {
		return nil, fmt.Errorf("could not load avatar font: %w", err)
	}

	return &avatarService{
		db:        db,
		log:       serviceLog,
		userRepo:  userRepo,
		mediaRoot: mediaRoot,
		fontFace:  face,
	}, nil
}

func (as *avatarService) CreateUserAvatar(ctx context.Context, tx *gorm.DB, user *types.User) error {
	if user == nil || user.ID == uuid.Nil {
		return fmt.Errorf("user required")
	}

	buf, err := as.GenerateUserAvatar(user)
	if err != nil {
		return err
	}

	dir := filepath.Join(as.mediaRoot, "avatars", user.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create avatar dir: %w", err)
	}
	// Versioned file name so cached copies of a replaced avatar go stale.
	path := filepath.Join(dir, fmt.Sprintf("%d.png", time.Now().UnixNano()))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write avatar: %w", err)
	}

	oldPath := strings.TrimSpace(user.AvatarPath)
	user.AvatarPath = path
	if user.CreatedAt.IsZero() {
		// Registration path: the row is created after this call with
		// AvatarPath already set.
		return nil
	}
	if err := as.userRepo.UpdateFields(ctx, tx, user.ID, map[string]any{
		"avatar_path": path,
		"updated_at":  time.Now(),
	}); err != nil {
		return err
	}
	if oldPath != "" && oldPath != path {
		if err := os.Remove(oldPath); err != nil {
			as.log.Warn("failed to delete old avatar (ignored)", "path", oldPath, "error", err)
		}
	}
	return nil
}

func (as *avatarService) GenerateUserAvatar(user *types.User) (bytes.Buffer, error) {
	const size = 512

	dc := gg.NewContext(size, size)

	dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
	dc.Clip()

	base := avatarPalette[rand.Intn(len(avatarPalette))]
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, float64(size), float64(size))
	dc.Fill()

	initials := computeInitials(user.FirstName, user.LastName)

	dc.SetFontFace(as.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(size)/2, float64(size)/2

	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2)+5, cy+(th/2)-10)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

func computeInitials(first, last string) string {
	fInit := "?"
	if len(first) > 0 {
		fInit = strings.ToUpper(first[:1])
	}
	lInit := "?"
	if len(last) > 0 {
		lInit = strings.ToUpper(last[:1])
	}
	return fInit + lInit
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
