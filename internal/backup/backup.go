// Package backup exports the account directory to S3-compatible object
// storage and restores it from there.
//
// Backups hold records exactly as stored on the ledger: metadata, the
// password verifier and the sealed sensitive payload. Restoring writes them
// back as pre-crypted creates, so no password is ever needed. Documents are
// CBOR encoded with the ledger record codec, so metadata values keep the
// types they decode to from the ledger.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/chainkeeper/internal/accounts"
	"github.com/dmitrijs2005/chainkeeper/internal/codec"
	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/logging"
	"github.com/dmitrijs2005/chainkeeper/internal/models"
	sc "github.com/dmitrijs2005/chainkeeper/internal/server/config"
	"github.com/google/uuid"
)

// Schema marks backup documents written by this package.
const Schema = "chainkeeper/backup/v1"

// PresignExpiry is the lifetime of download links returned by Export.
const PresignExpiry = 15 * time.Minute

const contentType = "application/cbor"

var ErrBadBackup = errors.New("malformed backup")

// Accounts is the part of the lifecycle manager a backup needs.
type Accounts interface {
	Directory(ctx context.Context) ([]*models.Account, error)
	Create(ctx context.Context, a accounts.NewAccount) (bool, error)
}

type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
	newS3PresignClient    = func(c *s3.Client) Presigner { return s3.NewPresignClient(c) }
)

// Record is one account as written to a backup.
type Record struct {
	UserKey          string         `cbor:"user_key"`
	MetaData         map[string]any `cbor:"meta_data,omitempty"`
	EncryptedPassKey []byte         `cbor:"encrypted_pass_key"`
	SensitiveData    []byte         `cbor:"sensitive_data,omitempty"`
}

type Document struct {
	Schema    string    `cbor:"schema"`
	CreatedAt time.Time `cbor:"created_at"`
	Accounts  []Record  `cbor:"accounts"`
}

type ExportResult struct {
	Key      string
	URL      string
	Accounts int
}

type RestoreResult struct {
	Restored int
	Skipped  int
}

type Service struct {
	accounts Accounts
	config   *sc.Config
	logger   logging.Logger

	mu        sync.Mutex
	store     ObjectStore
	presigner Presigner
}

func NewService(a Accounts, config *sc.Config, l logging.Logger) *Service {
	return &Service{
		accounts: a,
		config:   config,
		logger:   l.With("module", "backup"),
	}
}

// NewServiceWithClients uses the given object store and presigner instead
// of building S3 clients from the configuration.
func NewServiceWithClients(a Accounts, config *sc.Config, store ObjectStore, presigner Presigner, l logging.Logger) *Service {
	s := NewService(a, config, l)
	s.store = store
	s.presigner = presigner
	return s
}

// StorageKey returns a fresh object key for a backup taken at t.
func StorageKey(t time.Time) string {
	return fmt.Sprintf("backups/%d/%d/%d/%v.cbor", t.Year(), t.Month(), t.Day(), uuid.New())
}

func (s *Service) clients(ctx context.Context) (ObjectStore, Presigner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil && s.presigner != nil {
		return s.store, s.presigner, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	s.store = client
	s.presigner = newS3PresignClient(client)
	return s.store, s.presigner, nil
}

// Export writes the current directory to object storage and returns the
// object key with a presigned download link.
func (s *Service) Export(ctx context.Context) (*ExportResult, error) {
	dir, err := s.accounts.Directory(ctx)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	now := time.Now().UTC()
	doc := Document{Schema: Schema, CreatedAt: now, Accounts: make([]Record, 0, len(dir))}
	for _, a := range dir {
		doc.Accounts = append(doc.Accounts, Record{
			UserKey:          a.UserKey,
			MetaData:         a.MetaData,
			EncryptedPassKey: a.EncryptedPassKey,
			SensitiveData:    a.SensitiveData,
		})
	}

	body, err := codec.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}

	store, presigner, err := s.clients(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(now)

	if _, err := store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}); err != nil {
		return nil, fmt.Errorf("upload backup: %w", err)
	}

	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign backup: %w", err)
	}

	s.logger.Info(ctx, "backup exported", "key", key, "accounts", len(doc.Accounts))
	return &ExportResult{Key: key, URL: req.URL, Accounts: len(doc.Accounts)}, nil
}

// Restore recreates every account of the backup stored under key. Records
// whose userKey is taken are skipped.
func (s *Service) Restore(ctx context.Context, key string) (*RestoreResult, error) {
	if key == "" {
		return nil, common.ErrorValidation
	}

	store, _, err := s.clients(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	out, err := store.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, fmt.Errorf("download backup: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("download backup: %w", err)
	}

	var doc Document
	if err := codec.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBackup, err)
	}
	if doc.Schema != Schema {
		return nil, fmt.Errorf("%w: schema %q", ErrBadBackup, doc.Schema)
	}

	res := &RestoreResult{}
	for _, r := range doc.Accounts {
		ok, err := s.accounts.Create(ctx, accounts.NewAccount{
			UserKey:             r.UserKey,
			PassKey:             r.EncryptedPassKey,
			MetaData:            r.MetaData,
			SealedSensitiveData: r.SensitiveData,
			PreCrypted:          true,
		})
		if err != nil {
			return res, err
		}
		if ok {
			res.Restored++
		} else {
			res.Skipped++
			s.logger.Warn(ctx, "backup record skipped", "user_key", r.UserKey)
		}
	}

	s.logger.Info(ctx, "backup restored", "key", key, "restored", res.Restored, "skipped", res.Skipped)
	return res, nil
}
