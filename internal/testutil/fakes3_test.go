package testutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeS3_Content(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty object", data: []byte{}},
		{name: "small object", data: GenerateRandomData(128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := NewFakeS3("reads")
			_, err := fake.PutObject(context.Background(), &s3.PutObjectInput{
				Bucket: aws.String("reads"),
				Key:    aws.String("a.fq"),
				Body:   bytes.NewReader(tt.data),
			})
			require.NoError(t, err)

			got, ok := fake.Content("reads", "a.fq")
			require.True(t, ok)
			assert.NotNil(t, got)
			assert.Equal(t, tt.data, got)
		})
	}

	t.Run("missing object", func(t *testing.T) {
		got, ok := NewFakeS3("reads").Content("reads", "absent")
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}
