package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	obj, err := ParseURL("s3://proofs/2026/10/a.jpg")
	require.NoError(t, err)
	require.Equal(t, &Object{Bucket: "proofs", Key: "2026/10/a.jpg"}, obj)

	_, err = ParseURL("https://cdn.example.com/a.jpg")
	require.Error(t, err)

	_, err = ParseURL("s3://proofs")
	require.Error(t, err)
}
