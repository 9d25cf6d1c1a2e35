package storage

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// helper: generate a self-signed CA cert
func generateCACert(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	certTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test CA"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, certTmpl, certTmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
}

func TestNewHTTPClient_NoCA(t *testing.T) {
	client, err := NewHTTPClient("", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Transport != nil {
		t.Error("expected default transport")
	}
	if client.Timeout != 0 {
		t.Errorf("timeout = %v; want 0", client.Timeout)
	}
}

func TestNewHTTPClient_ReadCAError(t *testing.T) {
	_, err := NewHTTPClient("nonexistent.pem", 0)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected file not exist error, got %v", err)
	}
}

func TestNewHTTPClient_InvalidCA(t *testing.T) {
	caPath := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caPath, []byte("invalid pem"), 0600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}
	_, err := NewHTTPClient(caPath, 0)
	if err == nil || !strings.Contains(err.Error(), "failed to parse CA cert") {
		t.Errorf("expected parse CA error, got %v", err)
	}
}

func TestNewHTTPClient_WithCA(t *testing.T) {
	caPath := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caPath, generateCACert(t), 0600); err != nil {
		t.Fatalf("failed to write CA file: %v", err)
	}

	client, err := NewHTTPClient(caPath, 5*time.Second)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v; want 5s", client.Timeout)
	}
	tcfg := client.Transport.(*http.Transport).TLSClientConfig
	found := false
	for _, subj := range tcfg.RootCAs.Subjects() {
		if bytes.Contains(subj, []byte("Test CA")) {
			found = true
			break
		}
	}
	if !found {
		t.Error("CA certificate not found in RootCAs")
	}
}
