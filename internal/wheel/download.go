package wheel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/zedsetup/internal/config"
	"github.com/schollz/progressbar/v3"
)

const (
	// DefaultTimeout bounds a single download.
	DefaultTimeout = 10 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests.
	DefaultUserAgent = "zedsetup/1.0"
	maxRedirects     = 10
)

// StatusError reports a non-200 response. Nothing is written to disk.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// RepairFunc tries to fix certificate trust and returns PEM encoded root
// certificates to add before the single retry.
type RepairFunc func(ctx context.Context) ([]byte, error)

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	// Progress receives a byte progress bar; nil disables it.
	Progress  io.Writer
	Logger    config.Logger
	UserAgent string
	Timeout   time.Duration
}

// Downloader fetches wheels over HTTP(S).
type Downloader struct {
	client    *http.Client
	transport *http.Transport
	progress  io.Writer
	logger    config.Logger
	userAgent string
}

// NewDownloader creates a downloader.
func NewDownloader(cfg DownloaderConfig) *Downloader {
	if cfg.Logger == nil {
		cfg.Logger = config.NopLogger()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &Downloader{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		transport: transport,
		progress:  cfg.Progress,
		logger:    cfg.Logger,
		userAgent: cfg.UserAgent,
	}
}

// Fetch downloads url to destPath. If the first attempt fails certificate
// verification and repair is non-nil, repair is called, its certificates
// are trusted in addition to the system roots, and the download is retried
// exactly once.
func (d *Downloader) Fetch(ctx context.Context, url, destPath string, repair RepairFunc) error {
	err := d.DownloadToFile(ctx, url, destPath)
	if err == nil || repair == nil || !IsTrustError(err) {
		return err
	}

	d.logger.Warn("certificate verification failed, repairing trust store", "err", err)
	pem, repairErr := repair(ctx)
	if repairErr != nil {
		return fmt.Errorf("%w (repair failed: %v)", err, repairErr)
	}
	if err := d.AddRootCertificates(pem); err != nil {
		return fmt.Errorf("add repaired roots: %w", err)
	}

	d.logger.Info("retrying download", "url", url)
	return d.DownloadToFile(ctx, url, destPath)
}

// AddRootCertificates trusts the PEM certificates in addition to the system
// pool for subsequent requests.
func (d *Downloader) AddRootCertificates(pem []byte) error {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if d.transport.TLSClientConfig != nil && d.transport.TLSClientConfig.RootCAs != nil {
		pool = d.transport.TLSClientConfig.RootCAs.Clone()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return errors.New("no certificates found in PEM data")
	}

	transport := d.transport.Clone()
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	transport.TLSClientConfig.RootCAs = pool

	d.transport.CloseIdleConnections()
	d.transport = transport
	d.client.Transport = transport
	return nil
}

// DownloadToFile performs a single GET of url and writes the body to
// destPath through a temporary file.
func (d *Downloader) DownloadToFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	var dst io.Writer = tmpFile
	if d.progress != nil {
		dst = io.MultiWriter(tmpFile, d.newProgressBar(resp.ContentLength, filepath.Base(destPath)))
	}

	written, err := io.Copy(dst, resp.Body)
	if err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	cleanupNeeded = false

	d.logger.Debug("downloaded", "url", url, "bytes", written, "dest", destPath)
	return nil
}

func (d *Downloader) newProgressBar(size int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(d.progress),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(d.progress)
		}),
	)
}

// IsTrustError reports whether err is a certificate verification failure.
func IsTrustError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	var invalid x509.CertificateInvalidError
	var hostname x509.HostnameError
	var verification *tls.CertificateVerificationError

	return errors.As(err, &unknownAuthority) ||
		errors.As(err, &invalid) ||
		errors.As(err, &hostname) ||
		errors.As(err, &verification)
}
