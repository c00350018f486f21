package supervisor

import "os"

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WriteFileAtomic writes content to path atomically (temp file + rename),
// used for the OGM-style chapters file the CD playback engine writes
// before launching its subprocess.
func WriteFileAtomic(path string, content []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
