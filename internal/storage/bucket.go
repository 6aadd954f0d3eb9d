package storage

import "strings"

// ImageBucket is the bucket purchase images are uploaded to.
const ImageBucket = "purchase-images"

// Bucket resolves public read URLs for objects in one storage bucket.
type Bucket struct {
	BaseURL string
	Name    string
}

func NewImageBucket(baseURL string) Bucket {
	return Bucket{BaseURL: baseURL, Name: ImageBucket}
}

// PublicURL returns <base>/storage/v1/object/public/<bucket>/<path>.
func (b Bucket) PublicURL(path string) string {
	base := strings.TrimRight(b.BaseURL, "/")
	return base + "/storage/v1/object/public/" + b.Name + "/" + strings.TrimLeft(path, "/")
}
