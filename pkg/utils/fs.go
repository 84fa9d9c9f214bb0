/*
Copyright © 2023 The anaconda-boot Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package utils

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/twpayne/go-vfs"

	"github.com/rhinstaller/anaconda-boot/pkg/constants"
	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

// MkdirAll directory and all parents if not existing
func MkdirAll(fs v1.FS, name string, perm os.FileMode) (err error) {
	var exists bool
	if exists, _ = Exists(fs, name); !exists {
		return vfs.MkdirAll(fs, name, perm)
	}
	return err
}

// Exists checks if a path exists and returns true and nil if it does, false
// and nil if not, and false and the Stat error otherwise.
func Exists(fs v1.FS, path string, noFollow ...bool) (bool, error) {
	var err error
	if len(noFollow) > 0 && noFollow[0] {
		_, err = fs.Lstat(path)
	} else {
		_, err = fs.Stat(path)
	}
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsDir check if the path is a dir
func IsDir(fs v1.FS, path string) (bool, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

// MkdirSeq creates the first non existing directory of the sequence
// <stem>1, <stem>2, ... and returns its name
func MkdirSeq(fs v1.FS, stem string) (string, error) {
	err := MkdirAll(fs, filepath.Dir(stem), constants.DirPerm)
	if err != nil {
		return "", err
	}
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s%d", stem, n)
		err = fs.Mkdir(name, constants.DirPerm)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		return name, nil
	}
}

// CopyFile Copies source file to target file using Fs interface. If target
// is directory source is copied into that directory using source name file.
// File mode is preserved
func CopyFile(fs v1.FS, source string, target string) error {
	return ConcatFiles(fs, []string{source}, target)
}

// ConcatFiles Copies source files to target file using Fs interface.
// Source files are concatenated into target file in the given order.
// If target is a directory source is copied into that directory using
// 1st source name file. The result keeps the file mode of the 1st source.
func ConcatFiles(fs v1.FS, sources []string, target string) (err error) {
	if len(sources) == 0 {
		return fmt.Errorf("empty sources list")
	}
	if dir, _ := IsDir(fs, target); dir {
		target = filepath.Join(target, filepath.Base(sources[0]))
	}
	fInf, err := fs.Stat(sources[0])
	if err != nil {
		return err
	}

	targetFile, err := fs.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		cerr := targetFile.Close()
		if err == nil {
			err = cerr
		} else {
			_ = fs.Remove(target)
		}
	}()

	for _, source := range sources {
		err = appendFile(fs, targetFile, source)
		if err != nil {
			return err
		}
	}

	return fs.Chmod(target, fInf.Mode())
}

func appendFile(fs v1.FS, target io.Writer, source string) error {
	sourceFile, err := fs.Open(source)
	if err != nil {
		return err
	}
	defer sourceFile.Close()
	_, err = io.Copy(target, sourceFile)
	return err
}

// CopyDir copies the source tree into target, creating target if needed
func CopyDir(vfs v1.FS, source, target string) error {
	return WalkDirFs(vfs, source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(target, rel)
		if d.IsDir() {
			return MkdirAll(vfs, dest, constants.DirPerm)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return CopyFile(vfs, path, dest)
	})
}

// MoveFile moves source into target, target can be a directory
func MoveFile(fs v1.FS, source, target string) error {
	if dir, _ := IsDir(fs, target); dir {
		target = filepath.Join(target, filepath.Base(source))
	}
	err := fs.Rename(source, target)
	if err == nil {
		return nil
	}
	// Rename fails across mounts, fall back to copy and remove
	err = CopyFile(fs, source, target)
	if err != nil {
		return err
	}
	return fs.Remove(source)
}

// WriteFileAtomic replaces filename with data, the content is first written
// to a temporary file in the same directory and then renamed over the target
func WriteFileAtomic(fs v1.FS, filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	err := MkdirAll(fs, dir, constants.DirPerm)
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, "."+filepath.Base(filename)+".tmp")
	err = fs.WriteFile(tmp, data, perm)
	if err != nil {
		return err
	}
	err = fs.Rename(tmp, filename)
	if err != nil {
		_ = fs.Remove(tmp)
		return err
	}
	return nil
}

// AppendLine appends the given line to filename, adding the trailing
// newline if missing. The file is created if it does not exist.
func AppendLine(fs v1.FS, filename, line string) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	err := MkdirAll(fs, filepath.Dir(filename), constants.DirPerm)
	if err != nil {
		return err
	}
	f, err := fs.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FilePerm)
	if err != nil {
		return err
	}
	_, err = f.WriteString(line)
	if err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadLines returns the lines of filename. A file that can't be read
// returns no lines.
func ReadLines(fs v1.FS, filename string) []string {
	data, err := fs.ReadFile(filename)
	if err != nil {
		return []string{}
	}
	lines := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

// FindFiles returns the regular files under topdir whose base name matches
// the given shell pattern. An empty pattern matches every file.
func FindFiles(vfs v1.FS, topdir, pattern string) ([]string, error) {
	files := []string{}
	if ok, _ := Exists(vfs, topdir); !ok {
		return files, nil
	}
	err := WalkDirFs(vfs, topdir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if pattern != "" {
			match, err := filepath.Match(pattern, d.Name())
			if err != nil || !match {
				return err
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// WalkDirFs is the same as filepath.WalkDir but accepts a v1.Fs so it can be run on any v1.Fs type
func WalkDirFs(fs v1.FS, root string, fn fs.WalkDirFunc) error {
	info, err := fs.Stat(root)
	if err != nil {
		err = fn(root, nil, err)
	} else {
		err = walkDir(fs, root, &statDirEntry{info}, fn)
	}
	if errors.Is(err, filepath.SkipDir) {
		return nil
	}
	return err
}

func walkDir(fs v1.FS, path string, d fs.DirEntry, walkDirFn fs.WalkDirFunc) error {
	if err := walkDirFn(path, d, nil); err != nil || !d.IsDir() {
		if errors.Is(err, filepath.SkipDir) && d.IsDir() {
			// Successfully skipped directory.
			err = nil
		}
		return err
	}

	dirs, err := readDir(fs, path)
	if err != nil {
		// Second call, to report ReadDir error.
		err = walkDirFn(path, d, err)
		if err != nil {
			return err
		}
	}

	for _, d1 := range dirs {
		path1 := filepath.Join(path, d1.Name())
		if err := walkDir(fs, path1, d1, walkDirFn); err != nil {
			if errors.Is(err, filepath.SkipDir) {
				break
			}
			return err
		}
	}
	return nil
}

func readDir(vfs v1.FS, dirname string) ([]fs.DirEntry, error) {
	infos, err := vfs.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	dirs := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		dirs = append(dirs, &statDirEntry{info: info})
	}
	return dirs, nil
}

type statDirEntry struct {
	info fs.FileInfo
}

func (d *statDirEntry) Name() string               { return d.info.Name() }
func (d *statDirEntry) IsDir() bool                { return d.info.IsDir() }
func (d *statDirEntry) Type() fs.FileMode          { return d.info.Mode().Type() }
func (d *statDirEntry) Info() (fs.FileInfo, error) { return d.info, nil }
