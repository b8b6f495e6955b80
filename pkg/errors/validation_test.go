package errors

import (
	"strings"
	"testing"
)

func TestValidateMNumber(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"M1001", false},
		{"M1", false},
		{"M123456789", false},

		{"", true},
		{"m1001", true},
		{"1001", true},
		{"M", true},
		{"M10 01", true},
		{"M1001/../x", true},
		{"M1234567890", true},
	}

	for _, tt := range tests {
		err := ValidateMNumber(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateMNumber(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err != nil && !Is(err, ErrCodeInvalidInput) {
			t.Errorf("ValidateMNumber(%q) returned wrong error code: %v", tt.input, err)
		}
	}
}

func TestValidateAssetName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"svg icon", "no_entry.svg", false},
		{"png icon", "Fire Exit.PNG", false},
		{"no extension", "warning", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"slash", "icons/arrow.svg", true},
		{"backslash", "icons\\arrow.svg", true},
		{"traversal", "..arrow.svg", true},
		{"hidden", ".secret", true},
		{"control", "arrow\x01.svg", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAssetName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAssetName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidateAssetName(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://pub-example.r2.dev", false},
		{"http://localhost:9000", false},
		{"", true},
		{"ftp://example.com", true},
		{"example.com", true},
		{"https://", true},
		{"https://img.example.com/products", false},
	}

	for _, tt := range tests {
		err := ValidateURL(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateArchivePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"file at root", "ERRORS.txt", false},
		{"nested file", "M1001 Pre-Drilled No Entry/002 Images/M1001 - 001.png", false},
		{"directory", "M1001 Pre-Drilled No Entry/003 Blanks/", false},
		{"dots inside a name", "M1001 Self Adhesive Wait... aluminium sign/002 Images", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 600), true},
		{"absolute", "/etc/passwd", true},
		{"parent segment", "../../../etc/passwd", true},
		{"parent in middle", "foo/../bar", true},
		{"dot segment", "foo/./bar", true},
		{"empty segment", "foo//bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArchivePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArchivePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidateArchivePath(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeConfiguration,
		ErrCodeAssetNotFound,
		ErrCodeRenderTimeout,
		ErrCodeRender,
		ErrCodeInvalidInput,
		ErrCodeInvalidImageType,
		ErrCodeInvalidPath,
		ErrCodeNotFound,
		ErrCodeProductNotFound,
		ErrCodeJobNotFound,
		ErrCodeConflict,
		ErrCodeStorage,
		ErrCodeInternal,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
