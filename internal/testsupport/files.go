package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleSRT has cues at [0,2), [3,6) and [7,10).
const SampleSRT = `1
00:00:00,000 --> 00:00:02,000
one

2
00:00:03,000 --> 00:00:06,000
two

3
00:00:07,000 --> 00:00:10,000
three
`

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteSRT writes text to dir/name and returns the path.
func WriteSRT(t testing.TB, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Inputs creates a placeholder video and the sample subtitles in dir.
func Inputs(t testing.TB, dir string) (video, subs string) {
	t.Helper()
	video = filepath.Join(dir, "source.mp4")
	WriteFile(t, video, 1024)
	subs = WriteSRT(t, dir, "source.srt", SampleSRT)
	return video, subs
}
