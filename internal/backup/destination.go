// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
destination.go - Artifact Destination Routing

Moves finalized artifacts from the temp directory to their configured
destination and supports later removal (retention) and retrieval
(restore of remote artifacts).

Location strings are destination-specific: local artifacts use absolute
filesystem paths, S3 artifacts use s3://bucket/key. The location stored
on the Record is whatever Place returned, so Remove and Fetch can parse
it back without consulting configuration.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DestinationRouter places, removes, and fetches backup artifacts at a
// configured destination.
type DestinationRouter interface {
	// Place moves the local artifact to the destination, returning its
	// final location string. The source file no longer exists afterwards.
	Place(ctx context.Context, srcPath, fileName string) (string, error)

	// Remove deletes an artifact previously placed at location
	Remove(ctx context.Context, location string) error

	// Fetch copies the artifact at location to a local path. For local
	// destinations this is a plain copy.
	Fetch(ctx context.Context, location, destPath string) error
}

// newDestinationRouter selects the router for the configured destination.
// FTP and network drive destinations are declared in configuration but
// have no placement strategy.
func newDestinationRouter(cfg Config) (DestinationRouter, error) {
	switch cfg.Destination {
	case DestinationLocal:
		return &LocalDestination{dir: cfg.Local.Path}, nil
	case DestinationS3:
		return newS3Destination(cfg.S3), nil
	case DestinationFTP, DestinationNetworkDrive:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDestination, cfg.Destination)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDestination, cfg.Destination)
	}
}

// LocalDestination moves artifacts into a local directory
type LocalDestination struct {
	dir string
}

// Place moves the artifact into the destination directory. Rename is
// attempted first; cross-device moves fall back to copy and delete.
func (d *LocalDestination) Place(_ context.Context, srcPath, fileName string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", d.dir, err)
	}

	destPath := filepath.Join(d.dir, fileName)
	if err := os.Rename(srcPath, destPath); err != nil {
		if err := copyFile(srcPath, destPath); err != nil {
			return "", fmt.Errorf("failed to move artifact to %s: %w", destPath, err)
		}
		os.Remove(srcPath) //nolint:errcheck // Best effort cleanup
	}

	return destPath, nil
}

// Remove deletes the artifact file
func (d *LocalDestination) Remove(_ context.Context, location string) error {
	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove artifact %s: %w", location, err)
	}
	return nil
}

// Fetch copies the artifact to destPath
func (d *LocalDestination) Fetch(_ context.Context, location, destPath string) error {
	return copyFile(location, destPath)
}

// S3Destination uploads artifacts to an S3-compatible bucket
type S3Destination struct {
	client *s3.Client
	bucket string
	prefix string
}

// newS3Destination creates an S3 destination with static credentials.
// A custom endpoint and path-style addressing support S3-compatible
// stores such as MinIO.
func newS3Destination(cfg S3Config) *S3Destination {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &S3Destination{
		client: s3.New(opts),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}
}

// objectKey builds the object key for a file name under the configured prefix
func (d *S3Destination) objectKey(fileName string) string {
	if d.prefix == "" {
		return fileName
	}
	return d.prefix + "/" + fileName
}

// Place uploads the artifact and deletes the local source on success
//
//nolint:gosec // G304: srcPath is an internal temp path
func (d *S3Destination) Place(ctx context.Context, srcPath, fileName string) (string, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact %s: %w", srcPath, err)
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	key := d.objectKey(fileName)
	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact to s3://%s/%s: %w", d.bucket, key, err)
	}

	file.Close()        //nolint:errcheck // Already uploaded
	os.Remove(srcPath)  //nolint:errcheck // Best effort cleanup

	return fmt.Sprintf("s3://%s/%s", d.bucket, key), nil
}

// Remove deletes the object at the given s3:// location
func (d *S3Destination) Remove(ctx context.Context, location string) error {
	bucket, key, err := parseS3Location(location)
	if err != nil {
		return err
	}

	_, err = d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", location, err)
	}
	return nil
}

// Fetch downloads the object at the given s3:// location to destPath
//
//nolint:gosec // G304: destPath is an internal temp path
func (d *S3Destination) Fetch(ctx context.Context, location, destPath string) error {
	bucket, key, err := parseS3Location(location)
	if err != nil {
		return err
	}

	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", location, err)
	}
	defer out.Body.Close() //nolint:errcheck // Best effort cleanup

	file, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	if _, err := io.Copy(file, out.Body); err != nil {
		file.Close() //nolint:errcheck // Best effort cleanup on error
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}

	return file.Close()
}

// parseS3Location splits an s3://bucket/key location string
func parseS3Location(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid s3 location: %s", location)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location: %s", location)
	}
	return bucket, key, nil
}
