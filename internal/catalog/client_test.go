package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	coreconfig "shopbot/core/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := New(coreconfig.CatalogConfig{BaseURL: srv.URL, TimeoutSeconds: 5})
	return client, srv
}

func TestCategoriesDecodesTree(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categories/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `[{"id":1,"name":"Phones","subcategories":[{"id":3,"name":"Apple","subcategories":[]}]},{"id":2,"name":"Accessories","subcategories":[]}]`)
	}))

	cats, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 root categories, got %d", len(cats))
	}
	if cats[0].Subcategories[0].Name != "Apple" {
		t.Errorf("nested category not decoded: %+v", cats[0])
	}
}

func TestCreateItemSendsExpectedBody(t *testing.T) {
	var got map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/items/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	desc := "Leather case"
	err := client.CreateItem(context.Background(), ItemCreate{
		Name:        "Phone Case",
		Description: &desc,
		Price:       199.99,
		CategoryID:  2,
		ImageURLs:   []string{"http://img/1.jpg"},
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	want := map[string]any{
		"name":        "Phone Case",
		"description": "Leather case",
		"price":       199.99,
		"category_id": float64(2),
		"memory":      nil,
		"color":       nil,
		"image_urls":  []any{"http://img/1.jpg"},
		"is_active":   true,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("request body mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestCreateItemSurfacesStatusAndBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail":"category not found"}`)
	}))

	err := client.CreateItem(context.Background(), ItemCreate{Name: "X"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", apiErr.Status)
	}
	if !strings.Contains(apiErr.Body, "category not found") {
		t.Errorf("body not preserved: %q", apiErr.Body)
	}
}

func TestUploadImagesMultipart(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload/images/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 2 {
			t.Fatalf("expected 2 files under %q, got %d", "files", len(files))
		}
		io.WriteString(w, `["http://img/a.jpg","http://img/b.jpg"]`)
	}))

	urls, err := client.UploadImages(context.Background(), []UploadFile{
		{Name: "a.jpg", Data: strings.NewReader("aaa")},
		{Name: "b.jpg", Data: strings.NewReader("bbb")},
	})
	if err != nil {
		t.Fatalf("UploadImages: %v", err)
	}
	if !reflect.DeepEqual(urls, []string{"http://img/a.jpg", "http://img/b.jpg"}) {
		t.Errorf("urls = %v", urls)
	}
}

func TestUpdateItemUsesPut(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		io.WriteString(w, `{}`)
	}))

	err := client.UpdateItem(context.Background(), 42, ItemUpdate{Name: "Phone", Price: 100})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/items/42" {
		t.Errorf("request = %s %s, want PUT /items/42", gotMethod, gotPath)
	}
}

func TestFlattenCategoriesIndentsByDepth(t *testing.T) {
	cats := []Category{
		{ID: 1, Name: "Phones", Subcategories: []Category{
			{ID: 3, Name: "Apple", Subcategories: []Category{
				{ID: 4, Name: "Pro"},
			}},
		}},
		{ID: 2, Name: "Accessories"},
	}
	got := FlattenCategories(cats)
	want := []CategoryOption{
		{ID: 1, Label: "Phones"},
		{ID: 3, Label: "— Apple"},
		{ID: 4, Label: "— — Pro"},
		{ID: 2, Label: "Accessories"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("flatten mismatch:\n got %v\nwant %v", got, want)
	}
}
