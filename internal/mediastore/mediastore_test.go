package mediastore_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"reprint/internal/mediastore"
)

type fakeClient struct {
	objects  map[string][]byte
	failNext int
	getCalls int
	deleted  []string
}

func (f *fakeClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.getCalls++
	if f.failNext > 0 {
		f.failNext--
		return nil, errors.New("connection reset")
	}
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, *params.Key)
	delete(f.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestDownloadToFile(t *testing.T) {
	client := &fakeClient{objects: map[string][]byte{
		"chunks/vid-1/0.mp4": []byte("chunk data"),
	}}
	store := mediastore.NewWithClient(client, "reprint")

	dir := t.TempDir()
	path, err := store.DownloadToFile(context.Background(), "chunks/vid-1/0.mp4", dir)
	if err != nil {
		t.Fatalf("DownloadToFile: %v", err)
	}
	if filepath.Base(path) != "0.mp4" {
		t.Fatalf("unexpected local name: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "chunk data" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestDownloadRetriesTransientFailures(t *testing.T) {
	client := &fakeClient{
		objects:  map[string][]byte{"chunks/vid-1/0.mp4": []byte("ok")},
		failNext: 2,
	}
	store := mediastore.NewWithClient(client, "reprint")

	if _, err := store.DownloadToFile(context.Background(), "chunks/vid-1/0.mp4", t.TempDir()); err != nil {
		t.Fatalf("DownloadToFile after transient failures: %v", err)
	}
	if client.getCalls != 3 {
		t.Fatalf("expected 3 attempts, got %d", client.getCalls)
	}
}

func TestDownloadMissingObjectNoRetry(t *testing.T) {
	client := &fakeClient{objects: map[string][]byte{}}
	store := mediastore.NewWithClient(client, "reprint")

	_, err := store.DownloadToFile(context.Background(), "chunks/vid-1/9.mp4", t.TempDir())
	if !errors.Is(err, mediastore.ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if client.getCalls != 1 {
		t.Fatalf("missing object must not be retried, got %d attempts", client.getCalls)
	}
}

func TestUploadAndDelete(t *testing.T) {
	client := &fakeClient{}
	store := mediastore.NewWithClient(client, "reprint")

	local := filepath.Join(t.TempDir(), "0.mp4")
	if err := os.WriteFile(local, []byte("upload me"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	ctx := context.Background()
	if err := store.UploadFile(ctx, "chunks/vid-1/0.mp4", local); err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if string(client.objects["chunks/vid-1/0.mp4"]) != "upload me" {
		t.Fatalf("object not stored")
	}

	if err := store.Delete(ctx, "chunks/vid-1/0.mp4"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(client.deleted) != 1 {
		t.Fatalf("expected one delete call, got %d", len(client.deleted))
	}
}
