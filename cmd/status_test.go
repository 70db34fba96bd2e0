// ABOUTME: Tests for the status command
// ABOUTME: Verifies session reporting, token expiry display, and exit codes

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hirescore/hirescore-cli/internal/keystore"
	"github.com/hirescore/hirescore-cli/internal/wallet"
)

func TestFormatStatusHuman_SignedOut(t *testing.T) {
	output := formatStatusHuman(&statusOutput{SignedIn: false})
	if !bytes.Contains([]byte(output), []byte("Not signed in")) {
		t.Errorf("expected sign-in hint, got: %s", output)
	}
}

func TestFormatStatusHuman_SignedIn(t *testing.T) {
	output := formatStatusHuman(&statusOutput{
		SignedIn: true,
		Email:    "a@b.com",
		Wallet: &wallet.Wallet{
			Credits:              12,
			FreeAnalysesIncluded: 3,
			Pricing:              wallet.Pricing{Analyze: 1, AIResumeGeneration: 5, TemplatePDFDownload: 2},
		},
	})

	for _, check := range []string{"a@b.com", "12", "3 free analyses", "analyze 1"} {
		if !bytes.Contains([]byte(output), []byte(check)) {
			t.Errorf("expected output to contain %q, got:\n%s", check, output)
		}
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "a@b.com",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}

	got, ok := tokenExpiry(token)
	if !ok {
		t.Fatal("tokenExpiry should parse a well-formed token")
	}
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}

	if _, ok := tokenExpiry("not-a-jwt"); ok {
		t.Error("tokenExpiry should reject an opaque token")
	}
}

func TestStatusCommand_NotSignedIn(t *testing.T) {
	t.Setenv("HIRESCORE_STATE_DIR", t.TempDir())
	apiURL = "http://localhost:0"
	defer func() { apiURL = "" }()

	var buf bytes.Buffer
	exitCode := runStatus(context.Background(), &buf)

	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1 when signed out", exitCode)
	}
	if !bytes.Contains(buf.Bytes(), []byte("Not signed in")) {
		t.Errorf("expected sign-in hint, got: %s", buf.String())
	}
}

func TestStatusCommand_SignedIn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/health":
			w.WriteHeader(http.StatusOK)
		case "/api/auth/me":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"user":   map[string]string{"email": "a@b.com"},
				"wallet": map[string]interface{}{"credits": 7},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	stateDir := t.TempDir()
	t.Setenv("HIRESCORE_STATE_DIR", stateDir)
	keystore.New(stateDir).Set(keystore.KeyAuthToken, "tkn_1")
	apiURL = server.URL
	defer func() { apiURL = "" }()

	var buf bytes.Buffer
	exitCode := runStatus(context.Background(), &buf)

	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0, output:\n%s", exitCode, buf.String())
	}
	for _, check := range []string{"a@b.com", "7"} {
		if !bytes.Contains(buf.Bytes(), []byte(check)) {
			t.Errorf("expected output to contain %q, got:\n%s", check, buf.String())
		}
	}
}

func TestStatusCommand_JSON(t *testing.T) {
	t.Setenv("HIRESCORE_STATE_DIR", t.TempDir())
	apiURL = "http://localhost:0"
	jsonOutput = true
	defer func() {
		apiURL = ""
		jsonOutput = false
	}()

	var buf bytes.Buffer
	runStatus(context.Background(), &buf)

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if parsed["signedIn"] != false {
		t.Errorf("signedIn = %v, want false", parsed["signedIn"])
	}
}
