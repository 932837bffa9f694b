package entity

import "time"

// MediaHash is a row of the duplicate index. The 64-bit perceptual hash is
// split into four 16-bit bands: two hashes within Hamming distance 3 share at
// least one band exactly, which keeps lookups on indexed columns.
type MediaHash struct {
	SubmissionID string `gorm:"primaryKey"`
	CreatedAt    time.Time

	Scope string `gorm:"index:idx_media_hash_band0,priority:1;index:idx_media_hash_band1,priority:1;index:idx_media_hash_band2,priority:1;index:idx_media_hash_band3,priority:1"`
	Hash  string

	Band0 int `gorm:"index:idx_media_hash_band0,priority:2"`
	Band1 int `gorm:"index:idx_media_hash_band1,priority:2"`
	Band2 int `gorm:"index:idx_media_hash_band2,priority:2"`
	Band3 int `gorm:"index:idx_media_hash_band3,priority:2"`
}
