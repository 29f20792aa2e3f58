package subclip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileNameRoundTrip(t *testing.T) {
	cases := []struct {
		objectID   int
		startFrame int
		want       string
	}{
		{1, 0, "object_1_frame_0.mp4"},
		{2, 5, "object_2_frame_5.mp4"},
		{13, 1042, "object_13_frame_1042.mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			name := FileName(tc.objectID, tc.startFrame)
			require.Equal(t, tc.want, name)

			objectID, startFrame, err := ParseFileName(name)
			require.NoError(t, err)
			require.Equal(t, tc.objectID, objectID)
			require.Equal(t, tc.startFrame, startFrame)
		})
	}
}

func TestParseFileNameWithDirectory(t *testing.T) {
	objectID, startFrame, err := ParseFileName("/tmp/job-1/subclips/object_3_frame_17.mp4")
	require.NoError(t, err)
	require.Equal(t, 3, objectID)
	require.Equal(t, 17, startFrame)
}

func TestParseFileNameMalformed(t *testing.T) {
	cases := []string{
		"object_1.mp4",
		"frame_1_object_2.mp4",
		"object_x_frame_1.mp4",
		"object_1_frame_y.mp4",
		"video.mp4",
	}
	for _, name := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseFileName(name)
			require.Error(t, err)
		})
	}
}
