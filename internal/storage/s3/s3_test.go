package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObjectAPI struct {
	mock.Mock
}

func (m *MockObjectAPI) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *MockObjectAPI) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

var testOpts = Options{Bucket: "avatars", Region: "eu-central-1"}

func TestStorage_Put(t *testing.T) {
	ctx := context.Background()
	body := []byte("png-bytes")

	t.Run("success", func(t *testing.T) {
		api := new(MockObjectAPI)
		st := NewWithClient(api, testOpts)

		api.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			got, err := io.ReadAll(in.Body)
			return err == nil &&
				aws.ToString(in.Bucket) == "avatars" &&
				aws.ToString(in.Key) == "abc.png" &&
				aws.ToString(in.ContentType) == "image/png" &&
				aws.ToInt64(in.ContentLength) == int64(len(body)) &&
				bytes.Equal(got, body)
		})).Return(&s3.PutObjectOutput{}, nil).Once()

		err := st.Put(ctx, "abc.png", bytes.NewReader(body), int64(len(body)), "image/png")
		require.NoError(t, err)
		api.AssertExpectations(t)
	})

	t.Run("client error", func(t *testing.T) {
		api := new(MockObjectAPI)
		st := NewWithClient(api, testOpts)
		expectedErr := errors.New("access denied")

		api.On("PutObject", ctx, mock.Anything).Return(nil, expectedErr).Once()

		err := st.Put(ctx, "abc.png", bytes.NewReader(body), int64(len(body)), "")
		assert.ErrorIs(t, err, expectedErr)
		api.AssertExpectations(t)
	})
}

func TestStorage_Delete(t *testing.T) {
	ctx := context.Background()
	api := new(MockObjectAPI)
	st := NewWithClient(api, testOpts)

	api.On("DeleteObject", ctx, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return aws.ToString(in.Bucket) == "avatars" && aws.ToString(in.Key) == "abc.png"
	})).Return(&s3.DeleteObjectOutput{}, nil).Once()

	require.NoError(t, st.Delete(ctx, "abc.png"))
	api.AssertExpectations(t)
}

func TestStorage_URL(t *testing.T) {
	st := NewWithClient(new(MockObjectAPI), testOpts)
	assert.Equal(t, "https://avatars.s3.eu-central-1.amazonaws.com/abc.png", st.URL("abc.png"))

	minio := NewWithClient(new(MockObjectAPI), Options{Bucket: "avatars", Endpoint: "http://localhost:9000/"})
	assert.Equal(t, "http://localhost:9000/avatars/abc.png", minio.URL("abc.png"))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("empty bucket", func(t *testing.T) {
		_, err := New(ctx, Options{})
		assert.ErrorContains(t, err, "bucket name is empty")
	})

	t.Run("static credentials", func(t *testing.T) {
		st, err := New(ctx, Options{
			Bucket:    "avatars",
			Region:    "us-east-1",
			Endpoint:  "http://localhost:9000",
			AccessKey: "minio",
			SecretKey: "minio123",
			PathStyle: true,
		})
		require.NoError(t, err)
		assert.NotNil(t, st.client)
	})

	t.Run("config load error", func(t *testing.T) {
		orig := loadDefaultAWSConfig
		t.Cleanup(func() { loadDefaultAWSConfig = orig })

		expectedErr := errors.New("broken profile")
		loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, expectedErr
		}

		_, err := New(ctx, Options{Bucket: "avatars"})
		assert.ErrorIs(t, err, expectedErr)
	})
}
