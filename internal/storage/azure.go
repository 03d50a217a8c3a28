package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	apperrors "screenvec/internal/errors"
)

// BlobPuller syncs scans from a blob container into a local directory.
type BlobPuller interface {
	Pull(ctx context.Context, containerName, prefix, destDir string) ([]string, error)
}

type azurePuller struct {
	client *azblob.Client
}

// NewAzurePuller builds a puller against an Azure storage account using
// shared key credentials.
func NewAzurePuller(accountName, accountKey string) (BlobPuller, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid storage credentials", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build blob client", err)
	}
	return &azurePuller{client: client}, nil
}

// Pull downloads every blob under prefix into destDir, flattening blob
// paths to their base name. Returns the written filenames.
func (p *azurePuller) Pull(ctx context.Context, containerName, prefix, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, apperrors.NewInternalError("failed to create incoming directory", err)
	}

	opts := &azblob.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = &prefix
	}

	var written []string
	pager := p.client.NewListBlobsFlatPager(containerName, opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return written, apperrors.NewNetworkError("failed to list container "+containerName, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			name := *item.Name
			if strings.HasSuffix(name, "/") {
				continue
			}
			if err := p.download(ctx, containerName, name, destDir); err != nil {
				return written, err
			}
			written = append(written, path.Base(name))
		}
	}
	return written, nil
}

func (p *azurePuller) download(ctx context.Context, containerName, blobName, destDir string) error {
	resp, err := p.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return apperrors.NewNetworkError("failed to download blob "+blobName, err)
	}
	defer resp.Body.Close()

	dest := filepath.Join(destDir, path.Base(blobName))
	f, err := os.Create(dest)
	if err != nil {
		return apperrors.NewInternalError("failed to create "+dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return apperrors.NewInternalError("failed to write "+dest, err)
	}
	return f.Close()
}
