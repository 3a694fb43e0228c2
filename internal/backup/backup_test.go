package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/chainkeeper/internal/accounts"
	"github.com/dmitrijs2005/chainkeeper/internal/codec"
	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/logging"
	"github.com/dmitrijs2005/chainkeeper/internal/models"
	sc "github.com/dmitrijs2005/chainkeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*in.Bucket+"/"+*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (m *memStore) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (p *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var o s3.PresignOptions
	for _, fn := range optFns {
		fn(&o)
	}
	p.expires = o.Expires
	return &v4.PresignedHTTPRequest{URL: "http://s3.local/" + *in.Bucket + "/" + *in.Key, Method: "GET"}, nil
}

type fakeAccounts struct {
	dir     []*models.Account
	dirErr  error
	taken   map[string]bool
	created []accounts.NewAccount
	err     error
}

func (f *fakeAccounts) Directory(context.Context) ([]*models.Account, error) {
	return f.dir, f.dirErr
}

func (f *fakeAccounts) Create(_ context.Context, a accounts.NewAccount) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.taken[a.UserKey] {
		return false, nil
	}
	f.created = append(f.created, a)
	return true, nil
}

func encodeDoc(t *testing.T, d Document) []byte {
	t.Helper()
	b, err := codec.Marshal(d)
	require.NoError(t, err)
	return b
}

func testConfig() *sc.Config {
	c := &sc.Config{}
	c.LoadDefaults()
	return c
}

func TestStorageKey(t *testing.T) {
	k := StorageKey(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^backups/2026/3/7/[0-9a-f-]{36}\.cbor$`), k)
}

func TestExportRestore_RoundTrip(t *testing.T) {
	src := &fakeAccounts{dir: []*models.Account{
		{AccountID: "1", UserKey: "alice", MetaData: models.Data{"plan": "pro"}, EncryptedPassKey: []byte{1, 2}, SensitiveData: []byte{9, 9}},
		{AccountID: "2", UserKey: "bob", EncryptedPassKey: []byte{3}},
	}}
	store := newMemStore()
	pre := &fakePresigner{}
	cfg := testConfig()
	ctx := context.Background()

	out, err := NewServiceWithClients(src, cfg, store, pre, logging.NewNop()).Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Accounts)
	assert.Equal(t, "http://s3.local/vault/"+out.Key, out.URL)
	assert.Equal(t, PresignExpiry, pre.expires)

	raw := store.objects["vault/"+out.Key]
	var doc Document
	require.NoError(t, codec.Unmarshal(raw, &doc))
	assert.Equal(t, Schema, doc.Schema)
	require.Len(t, doc.Accounts, 2)

	dst := &fakeAccounts{taken: map[string]bool{"bob": true}}
	res, err := NewServiceWithClients(dst, cfg, store, pre, logging.NewNop()).Restore(ctx, out.Key)
	require.NoError(t, err)
	assert.Equal(t, &RestoreResult{Restored: 1, Skipped: 1}, res)

	require.Len(t, dst.created, 1)
	got := dst.created[0]
	assert.True(t, got.PreCrypted)
	assert.Equal(t, "alice", got.UserKey)
	assert.Equal(t, []byte{1, 2}, got.PassKey)
	assert.Equal(t, []byte{9, 9}, got.SealedSensitiveData)
	assert.Equal(t, "pro", got.MetaData["plan"])
}

func TestExportRestore_MetadataKeepsNumericTypes(t *testing.T) {
	meta := models.Data{
		"seats":   uint64(5),
		"balance": int64(-12),
		"ratio":   0.5,
		"tags":    []any{"a", uint64(2)},
		"nested":  map[string]any{"max": uint64(1 << 40)},
	}
	src := &fakeAccounts{dir: []*models.Account{
		{AccountID: "1", UserKey: "alice", MetaData: meta, EncryptedPassKey: []byte{1}},
	}}
	store := newMemStore()
	ctx := context.Background()

	out, err := NewServiceWithClients(src, testConfig(), store, &fakePresigner{}, logging.NewNop()).Export(ctx)
	require.NoError(t, err)

	dst := &fakeAccounts{}
	_, err = NewServiceWithClients(dst, testConfig(), store, &fakePresigner{}, logging.NewNop()).Restore(ctx, out.Key)
	require.NoError(t, err)
	require.Len(t, dst.created, 1)

	got := dst.created[0].MetaData
	assert.Equal(t, uint64(5), got["seats"])
	assert.Equal(t, int64(-12), got["balance"])
	assert.Equal(t, 0.5, got["ratio"])
	assert.Equal(t, []any{"a", uint64(2)}, got["tags"])
	assert.Equal(t, map[string]any{"max": uint64(1 << 40)}, got["nested"])
}

func TestExport_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewServiceWithClients(&fakeAccounts{dirErr: common.ErrConfiguration}, testConfig(), newMemStore(), &fakePresigner{}, logging.NewNop()).Export(ctx)
	require.ErrorIs(t, err, common.ErrConfiguration)

	store := newMemStore()
	store.putErr = errors.New("denied")
	_, err = NewServiceWithClients(&fakeAccounts{}, testConfig(), store, &fakePresigner{}, logging.NewNop()).Export(ctx)
	require.ErrorContains(t, err, "denied")
}

func TestRestore_Errors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.objects["vault/bad"] = []byte{0xff, 0x01}
	store.objects["vault/foreign"] = encodeDoc(t, Document{Schema: "other"})
	store.objects["vault/ok"] = encodeDoc(t, Document{Schema: Schema, Accounts: []Record{{UserKey: "a", EncryptedPassKey: []byte{1}}}})
	svc := func(a Accounts) *Service {
		return NewServiceWithClients(a, testConfig(), store, &fakePresigner{}, logging.NewNop())
	}

	_, err := svc(&fakeAccounts{}).Restore(ctx, "")
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc(&fakeAccounts{}).Restore(ctx, "missing")
	require.Error(t, err)

	_, err = svc(&fakeAccounts{}).Restore(ctx, "bad")
	require.ErrorIs(t, err, ErrBadBackup)

	_, err = svc(&fakeAccounts{}).Restore(ctx, "foreign")
	require.ErrorIs(t, err, ErrBadBackup)

	_, err = svc(&fakeAccounts{err: common.ErrConfiguration}).Restore(ctx, "ok")
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestClients_BuildsFromConfigOnce(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loads := 0
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		loads++
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}

	var baseEndpoint string
	var pathStyle bool
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		baseEndpoint = aws.ToString(opts.BaseEndpoint)
		pathStyle = opts.UsePathStyle
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) Presigner {
		require.NotNil(t, c)
		return &fakePresigner{}
	}

	s := NewService(&fakeAccounts{}, testConfig(), logging.NewNop())
	store, pre, err := s.clients(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.NotNil(t, pre)
	assert.Equal(t, "http://127.0.0.1:9000/", baseEndpoint)
	assert.True(t, pathStyle)

	_, _, err = s.clients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
}

func TestClients_LoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := NewService(&fakeAccounts{}, testConfig(), logging.NewNop()).Export(context.Background())
	require.ErrorContains(t, err, "load-fail")
}
