// internal/router/sources_test.go
package router

import (
	"reflect"
	"testing"
)

func TestExtractCitedURLs(t *testing.T) {
	text := `The fees are listed online [Source: https://school.example/fees].
More detail at (Source: https://school.example/admissions) and the
application portal, URL: https://apply.example/start.
As noted before [Source: https://school.example/fees], apply early.`

	got := ExtractCitedURLs(text)
	want := []string{
		"https://school.example/fees",
		"https://school.example/admissions",
		"https://apply.example/start",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtractCitedURLsNone(t *testing.T) {
	got := ExtractCitedURLs("no citations here, just https://bare.example links")
	if len(got) != 0 {
		t.Errorf("expected no cited urls, got %v", got)
	}
}

func TestExtractURLs(t *testing.T) {
	text := "Compare https://a.example/page and https://b.example. Also https://a.example/page again."
	got := ExtractURLs(text)
	want := []string{"https://a.example/page", "https://b.example"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtractURLsEmpty(t *testing.T) {
	if got := ExtractURLs("nothing to see"); len(got) != 0 {
		t.Errorf("expected none, got %v", got)
	}
}
