package s3fetch

import "testing"

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"bucket and key", "s3://my-bucket/path/to/manifest.json", "my-bucket", "path/to/manifest.json", false},
		{"bucket only", "s3://my-bucket", "my-bucket", "", false},
		{"bucket with trailing slash", "s3://my-bucket/", "my-bucket", "", false},
		{"prefix", "s3://my-bucket/inventory/2026-08-01T00-00Z/", "my-bucket", "inventory/2026-08-01T00-00Z/", false},
		{"not an s3 uri", "http://example.com/file", "", "", true},
		{"missing bucket", "s3:///key", "", "", true},
		{"local path", "/tmp/manifest.json", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseS3URI failed: %v", err)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("got (%q, %q), want (%q, %q)", bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}

func TestIsS3URI(t *testing.T) {
	if !IsS3URI("s3://bucket/key") {
		t.Error("expected s3://bucket/key to be an S3 URI")
	}
	if IsS3URI("/local/path.csv") {
		t.Error("expected /local/path.csv not to be an S3 URI")
	}
}
