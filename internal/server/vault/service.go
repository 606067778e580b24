// Package vault stores pre-encrypted content entries and hands out presigned
// object-storage URLs for media blobs.
package vault

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lifesignal/lifesignal/internal/common"
	"github.com/lifesignal/lifesignal/internal/cryptox"
	"github.com/lifesignal/lifesignal/internal/logging"
	sc "github.com/lifesignal/lifesignal/internal/server/config"
)

const previewLength = 12

type Service struct {
	repo   Repository
	config *sc.Config
	key    []byte
	logger logging.Logger
}

// EntryView is the owner-facing listing form of an entry: media entries show
// their kind, text entries a short decrypted preview.
type EntryView struct {
	ID           int64
	ContentKind  ContentKind
	Preview      string
	RecipientIDs []string
	CreatedAt    time.Time
}

func NewService(repo Repository, config *sc.Config, logger logging.Logger) (*Service, error) {
	key, err := hex.DecodeString(config.EncryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("error decoding encryption key: %w", err)
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 16, 24 or 32 bytes, got %d", len(key))
	}

	return &Service{
		repo:   repo,
		config: config,
		key:    key,
		logger: logger.With("module", "vault"),
	}, nil
}

// Add encrypts content and stores the entry. For media kinds, content is the
// storage reference of the uploaded blob and storageKey carries the object key.
func (s *Service) Add(ctx context.Context, ownerID string, kind ContentKind, content, storageKey string, recipientIDs []string) (*Entry, error) {

	if !ValidKind(kind) {
		return nil, common.ErrorValidation
	}

	ciphertext, nonce, err := cryptox.Seal([]byte(content), s.key)
	if err != nil {
		return nil, fmt.Errorf("error encrypting entry: %w", err)
	}

	entry := &Entry{
		OwnerID:      ownerID,
		ContentKind:  kind,
		Ciphertext:   ciphertext,
		Nonce:        nonce,
		StorageKey:   storageKey,
		RecipientIDs: recipientIDs,
	}

	entry, err = s.repo.Create(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("error creating entry: %w", err)
	}

	return entry, nil
}

// List returns owner-facing views. An undecryptable text entry is listed with
// a placeholder preview rather than dropped, so the owner can still delete it.
func (s *Service) List(ctx context.Context, ownerID string) ([]*EntryView, error) {

	entries, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	views := make([]*EntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, &EntryView{
			ID:           entry.ID,
			ContentKind:  entry.ContentKind,
			Preview:      s.preview(entry),
			RecipientIDs: entry.RecipientIDs,
			CreatedAt:    entry.CreatedAt,
		})
	}
	return views, nil
}

func (s *Service) preview(entry *Entry) string {
	if entry.ContentKind != KindText {
		return "[" + strings.ToUpper(string(entry.ContentKind)) + "]"
	}
	plaintext, err := s.Decrypt(entry)
	if err != nil {
		return "[undecryptable]"
	}
	if len(plaintext) > previewLength {
		return plaintext[:previewLength] + ".."
	}
	return plaintext
}

// Reveal decrypts a single entry for its owner.
func (s *Service) Reveal(ctx context.Context, ownerID string, id int64) (*Entry, string, error) {
	entry, err := s.repo.Get(ctx, id, ownerID)
	if err != nil {
		return nil, "", err
	}
	plaintext, err := s.Decrypt(entry)
	if err != nil {
		return nil, "", err
	}
	return entry, plaintext, nil
}

// Decrypt opens the entry's ciphertext. Corrupt or foreign-key data yields
// common.ErrorUndecryptable.
func (s *Service) Decrypt(entry *Entry) (string, error) {
	plaintext, err := cryptox.Open(entry.Ciphertext, entry.Nonce, s.key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*Entry, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) UpdateRecipients(ctx context.Context, ownerID string, id int64, recipientIDs []string) error {
	return s.repo.UpdateRecipients(ctx, id, ownerID, recipientIDs)
}

func (s *Service) Delete(ctx context.Context, ownerID string, id int64) error {
	return s.repo.Delete(ctx, id, ownerID)
}

func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("vault/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *Service) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return s3.NewPresignClient(client), nil
}

// GetPresignedPutUrl returns a fresh object key and a URL the front-end can
// PUT a media blob to before registering the entry.
func (s *Service) GetPresignedPutUrl(ctx context.Context) (string, string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey()

	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// GetPresignedGetUrl returns a download URL for a stored media blob, used
// both for owner reveal and for trustee delivery.
func (s *Service) GetPresignedGetUrl(ctx context.Context, key string) (string, error) {

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
