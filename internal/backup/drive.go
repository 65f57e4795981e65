// Package backup moves the whole catalog in and out of its two backup
// forms: a single well-known file on Google Drive, and a local export file.
// Both carry the same JSON array of catalog items.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/auraarchive/aura/internal/catalog"
)

// FileName is the fixed, well-known backup object name. One object per
// account; the gateway always searches by this name before uploading so a
// push never creates a duplicate.
const FileName = "aura-archive-cloud-data.json"

// ErrNoBackup reports that no cloud backup object exists yet. It is a valid
// outcome (first-ever use), not a failure.
var ErrNoBackup = errors.New("no cloud backup exists")

// ErrInvalidBackup reports a backup payload that is not a JSON array of
// catalog items. Reported, non-fatal.
var ErrInvalidBackup = errors.New("invalid backup data")

// gatewayTimeout bounds every Drive call. The source has no timeout;
// expiry surfaces as an ordinary gateway failure.
const gatewayTimeout = 30 * time.Second

// Drive is the cloud backup gateway: push/pull of the entire catalog as one
// Drive file. Credentials are injected at construction; a nil *Drive is a
// valid "cloud not configured" gateway.
type Drive struct {
	svc *drive.Service
}

// NewDrive builds the gateway from explicit client options (credentials
// file, or test endpoint overrides).
func NewDrive(ctx context.Context, opts ...option.ClientOption) (*Drive, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &Drive{svc: svc}, nil
}

// NewDriveFromCredentials builds the gateway from a service credentials
// file, requesting only per-file scope.
func NewDriveFromCredentials(ctx context.Context, credentialsFile string) (*Drive, error) {
	return NewDrive(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveFileScope),
	)
}

// Available reports whether the gateway holds a usable client. It never
// performs network I/O.
func (d *Drive) Available() bool {
	return d != nil && d.svc != nil
}

// findFileID looks the backup object up by its well-known name. Returns ""
// when no object exists.
func (d *Drive) findFileID(ctx context.Context) (string, error) {
	query := fmt.Sprintf("name = '%s' and trashed = false", FileName)
	list, err := d.svc.Files.List().
		Q(query).
		Spaces("drive").
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("searching for backup file: %w", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// Push serializes the entire catalog as one file and uploads it: create if
// absent, else overwrite in place. Returns the point in time the push
// completed. On failure nothing local is mutated; the caller decides how to
// surface a retry.
func (d *Drive) Push(ctx context.Context, items []catalog.Item) (time.Time, error) {
	if !d.Available() {
		return time.Time{}, errors.New("cloud backup is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	data, err := json.Marshal(items)
	if err != nil {
		return time.Time{}, fmt.Errorf("encoding catalog: %w", err)
	}

	fileID, err := d.findFileID(ctx)
	if err != nil {
		return time.Time{}, err
	}

	if fileID == "" {
		meta := &drive.File{Name: FileName, MimeType: "application/json"}
		_, err = d.svc.Files.Create(meta).
			Media(bytes.NewReader(data)).
			Context(ctx).
			Do()
		if err != nil {
			return time.Time{}, fmt.Errorf("creating backup file: %w", err)
		}
	} else {
		_, err = d.svc.Files.Update(fileID, &drive.File{}).
			Media(bytes.NewReader(data)).
			Context(ctx).
			Do()
		if err != nil {
			return time.Time{}, fmt.Errorf("updating backup file: %w", err)
		}
	}

	return time.Now(), nil
}

// Pull fetches and deserializes the remote backup. Returns ErrNoBackup when
// the account has no backup object yet.
func (d *Drive) Pull(ctx context.Context) ([]catalog.Item, error) {
	if !d.Available() {
		return nil, errors.New("cloud backup is not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	fileID, err := d.findFileID(ctx)
	if err != nil {
		return nil, err
	}
	if fileID == "" {
		return nil, ErrNoBackup
	}

	resp, err := d.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("downloading backup file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading backup file: %w", err)
	}

	items, err := decodeItems(data)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// IsAuthError reports whether a gateway failure looks like an expired or
// revoked credential. The controller uses this to downgrade the connected
// state instead of failing silently on every subsequent call.
func IsAuthError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 401 || apiErr.Code == 403
	}
	return false
}

func decodeItems(data []byte) ([]catalog.Item, error) {
	var items []catalog.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return items, nil
}
