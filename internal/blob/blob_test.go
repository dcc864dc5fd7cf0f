package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUploadReturnsPublicURL(t *testing.T) {
	var gotMethod, gotPath, gotContentType, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "avatars", "secret")
	publicURL, err := c.Upload(context.Background(), "stu1/avatar.png", "image/png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/object/avatars/stu1/avatar.png" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotContentType != "image/png" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if string(gotBody) != "png-bytes" {
		t.Errorf("body = %q", gotBody)
	}

	want := srv.URL + "/object/public/avatars/stu1/avatar.png"
	if publicURL != want {
		t.Errorf("public URL = %q, want %q", publicURL, want)
	}
}

func TestUploadRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "avatars", "")
	if _, err := c.Upload(context.Background(), "x.png", "image/png", nil); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestDeleteByPublicURL(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "avatars", "")
	err := c.Delete(context.Background(), srv.URL+"/object/public/avatars/stu1/avatar.png")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/object/avatars/stu1/avatar.png" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestDeleteMissingObjectIsNoError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "avatars", "")
	if err := c.Delete(context.Background(), srv.URL+"/object/public/avatars/gone.png"); err != nil {
		t.Errorf("Delete of missing object: %v", err)
	}
}

func TestDeleteRejectsForeignURL(t *testing.T) {
	c := NewClient("http://bucket.local", "avatars", "")
	if err := c.Delete(context.Background(), "http://bucket.local/object/public/other-bucket/x.png"); err == nil {
		t.Error("URL from another bucket accepted")
	}
	if err := c.Delete(context.Background(), "not a url at all \x7f://"); err == nil {
		t.Error("garbage URL accepted")
	}
}
