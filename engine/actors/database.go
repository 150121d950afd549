package actors

import (
	"bytes"
	"io"
	"os"

	"memberdao/engine/library"
)

// Open returns the flat file for the given mind and db, if it exists.
func Open(mind, db string) (*os.File, bool) {
	if err := os.MkdirAll(directory(mind), 0777); err != nil {
		library.LogCLI(err.Error(), 1)
		return nil, false
	}
	_, err := os.Stat(directory(mind) + db + ".dat")
	if os.IsNotExist(err) {
		return nil, false
	}
	file, err := os.Open(directory(mind) + db + ".dat")
	if err != nil {
		library.LogCLI(err.Error(), 1)
		return nil, false
	}
	return file, true
}

// Write replaces the flat file for the given mind and db. The new content is written next to the
// old file and renamed over it so a crash never leaves a half written journal.
func Write(mind, db string, b []byte) error {
	if err := os.MkdirAll(directory(mind), 0777); err != nil {
		return err
	}
	tmp := directory(mind) + db + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, bytes.NewReader(b))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, directory(mind)+db+".dat")
}

func directory(mind string) string {
	dir := MakeOrGetConfig().GetString("rootDir")
	dir = dir + MakeOrGetConfig().GetString("flatFileDir")
	dir = dir + mind + "/"
	return dir
}
