package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params

	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.body = body

	return &s3.PutObjectOutput{}, f.err
}

func TestS3Archiver_Archive(t *testing.T) {
	fake := &fakeS3{}
	a := New(fake, "ledger-uploads", "/imports/")
	a.now = func() time.Time { return time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC) }

	propertyID := uuid.MustParse("7b0f4a4e-3c1d-4d59-9d7e-2f0a1b2c3d4e")

	key, err := a.Archive(context.Background(), propertyID, "../Jan statement (final).xlsx", []byte("xlsx-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "imports/7b0f4a4e-3c1d-4d59-9d7e-2f0a1b2c3d4e/20240105T093000Z-Jan_statement_final_.xlsx", key)
	assert.Equal(t, "ledger-uploads", aws.ToString(fake.input.Bucket))
	assert.Equal(t, key, aws.ToString(fake.input.Key))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", aws.ToString(fake.input.ContentType))
	assert.Equal(t, propertyID.String(), fake.input.Metadata["property-id"])
	assert.Equal(t, []byte("xlsx-bytes"), fake.body)
}

func TestS3Archiver_ArchiveError(t *testing.T) {
	fake := &fakeS3{err: errors.New("access denied")}
	a := New(fake, "ledger-uploads", "")

	key, err := a.Archive(context.Background(), uuid.New(), "rent.csv", []byte("a,b\n"))
	assert.ErrorContains(t, err, "access denied")
	assert.Empty(t, key)
	assert.Equal(t, "text/csv", aws.ToString(fake.input.ContentType))
}
