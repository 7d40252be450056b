package api

// maxMultipartMemory bounds the in-memory portion of multipart parsing;
// larger parts spill to temp files (8 MB).
const maxMultipartMemory = 8 << 20

// Cache-Control header values. Content is addressed by fingerprint, so
// originals and renditions never change under a given photo ID.
const (
	cacheOriginal  = "private, max-age=604800"
	cacheThumbnail = "private, max-age=86400"
)
