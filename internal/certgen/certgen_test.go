package certgen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateCA(t *testing.T) {
	ca, key, err := GenerateCA("Test CA", 24*time.Hour)
	if err != nil {
		t.Fatalf("GenerateCA: %v", err)
	}
	if !ca.IsCA || !ca.BasicConstraintsValid {
		t.Error("CA certificate should have IsCA and BasicConstraintsValid")
	}
	if ca.KeyUsage&x509.KeyUsageCertSign == 0 {
		t.Errorf("CA KeyUsage = %v; want CertSign", ca.KeyUsage)
	}
	if ca.Subject.CommonName != "Test CA" {
		t.Errorf("CN = %q", ca.Subject.CommonName)
	}
	if key.Curve != elliptic.P256() {
		t.Error("expected P-256 key")
	}
}

func TestGenerateServerCertificate_Verifies(t *testing.T) {
	ca, key, err := GenerateCA("Test CA", 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	certPEM, keyPEM, err := GenerateServerCertificate([]string{"localhost", "127.0.0.1"}, ca, key)
	if err != nil {
		t.Fatalf("GenerateServerCertificate: %v", err)
	}

	if _, err := tls.X509KeyPair(certPEM, keyPEM); err != nil {
		t.Fatalf("cert and key do not match: %v", err)
	}

	block, _ := pem.Decode(certPEM)
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatal(err)
	}
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v", cert.DNSNames)
	}
	if len(cert.IPAddresses) != 1 || !cert.IPAddresses[0].Equal(net.ParseIP("127.0.0.1")) {
		t.Errorf("IPAddresses = %v", cert.IPAddresses)
	}

	roots := x509.NewCertPool()
	roots.AddCert(ca)
	for _, host := range []string{"localhost", "127.0.0.1"} {
		if _, err := cert.Verify(x509.VerifyOptions{Roots: roots, DNSName: host}); err != nil {
			t.Errorf("verify for %s: %v", host, err)
		}
	}
}

func TestGenerateServerCertificate_NoHosts(t *testing.T) {
	ca, key, err := GenerateCA("Test CA", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := GenerateServerCertificate(nil, ca, key); err == nil {
		t.Error("expected error for empty host list")
	}
}

func TestLoadCACredentials_Errors(t *testing.T) {
	ca, key, err := GenerateCA("Test CA", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	certPath := writeTemp(t, "ca.crt", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ca.Raw}))
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name       string
		certPath   string
		keyPEM     []byte
		wantSubstr string
	}{
		{"missing cert", filepath.Join(t.TempDir(), "none.crt"), nil, "read ca cert"},
		{"bad key pem", certPath, []byte("garbage"), "invalid CA key PEM"},
		{"unsupported key", certPath, pem.EncodeToMemory(&pem.Block{Type: "DSA PRIVATE KEY", Bytes: []byte{1}}), "unsupported key type"},
		{"pkcs8 key", certPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}), ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keyPath := writeTemp(t, "ca.key", tc.keyPEM)
			_, gotKey, err := LoadCACredentials(tc.certPath, keyPath)
			if tc.wantSubstr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if _, ok := gotKey.(*ecdsa.PrivateKey); !ok {
					t.Errorf("expected *ecdsa.PrivateKey, got %T", gotKey)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("error = %v; want substring %q", err, tc.wantSubstr)
			}
		})
	}
}

func TestWriteBundle_ReusesCA(t *testing.T) {
	dir := t.TempDir()
	if err := WriteBundle(dir, []string{"localhost"}); err != nil {
		t.Fatalf("first WriteBundle: %v", err)
	}
	firstCA, err := os.ReadFile(filepath.Join(dir, CACertFile))
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(dir, ServerKeyFile))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("server key mode = %v; want 0600", info.Mode().Perm())
	}

	if err := WriteBundle(dir, []string{"example.test"}); err != nil {
		t.Fatalf("second WriteBundle: %v", err)
	}
	secondCA, _ := os.ReadFile(filepath.Join(dir, CACertFile))
	if string(firstCA) != string(secondCA) {
		t.Error("existing CA was replaced")
	}

	ca, _, err := LoadCACredentials(filepath.Join(dir, CACertFile), filepath.Join(dir, CAKeyFile))
	if err != nil {
		t.Fatal(err)
	}
	pair, err := tls.LoadX509KeyPair(filepath.Join(dir, ServerCertFile), filepath.Join(dir, ServerKeyFile))
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	roots := x509.NewCertPool()
	roots.AddCert(ca)
	if _, err := leaf.Verify(x509.VerifyOptions{Roots: roots, DNSName: "example.test"}); err != nil {
		t.Errorf("server cert does not chain to reused CA: %v", err)
	}
}

func TestSerialNumbersDiffer(t *testing.T) {
	a, _ := serialNumber()
	b, _ := serialNumber()
	if a.Cmp(b) == 0 {
		t.Error("expected distinct serial numbers")
	}
}
