package httpapi

import (
	"path/filepath"
	"testing"
)

func TestAttachmentPath(t *testing.T) {
	root := filepath.Join("/srv", "uploads")
	cases := []struct {
		name    string
		fileURL string
		want    string
	}{
		{"relative", "surat/123.pdf", filepath.Join(root, "surat", "123.pdf")},
		{"leading slash", "/surat/123.pdf", filepath.Join(root, "surat", "123.pdf")},
		{"absolute stays under root", "/etc/passwd", filepath.Join(root, "etc", "passwd")},
		{"dotdot traversal", "../../etc/passwd", filepath.Join(root, "etc", "passwd")},
		{"mixed traversal", "surat/../../secret.txt", filepath.Join(root, "secret.txt")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := attachmentPath(root, tc.fileURL)
			if got != tc.want {
				t.Fatalf("attachmentPath(%q) = %q, want %q", tc.fileURL, got, tc.want)
			}
			rel, err := filepath.Rel(root, got)
			if err != nil || rel == ".." || filepath.IsAbs(rel) {
				t.Fatalf("resolved path %q escapes upload root", got)
			}
		})
	}
}
