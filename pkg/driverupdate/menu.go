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

package driverupdate

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const defaultPageHeight = 20

// TextMenu is a paged selection menu on a plain terminal
type TextMenu struct {
	Items      []fmt.Stringer
	Header     string
	Refresher  func() ([]fmt.Stringer, error)
	Multi      bool
	PageHeight int

	page     int
	selected []fmt.Stringer
	done     bool
	in       *bufio.Scanner
	out      io.Writer
}

func NewTextMenu(in io.Reader, out io.Writer, header string, items []fmt.Stringer) *TextMenu {
	return &TextMenu{
		Items:      items,
		Header:     header,
		PageHeight: defaultPageHeight,
		page:       1,
		in:         bufio.NewScanner(in),
		out:        out,
	}
}

func (m *TextMenu) NumPages() int {
	return (len(m.Items) + m.PageHeight - 1) / m.PageHeight
}

func (m *TextMenu) Next() {
	if m.page < m.NumPages() {
		m.page++
	}
}

func (m *TextMenu) Prev() {
	if m.page > 1 {
		m.page--
	}
}

// Refresh reloads the items, the selection is dropped
func (m *TextMenu) Refresh() error {
	if m.Refresher == nil {
		return nil
	}
	items, err := m.Refresher()
	if err != nil {
		return err
	}
	m.Items = items
	m.selected = nil
	if m.page > m.NumPages() {
		m.page = 1
	}
	return nil
}

func (m *TextMenu) Toggle(item fmt.Stringer) {
	for i, s := range m.selected {
		if s == item {
			m.selected = append(m.selected[:i], m.selected[i+1:]...)
			if !m.Multi {
				m.done = true
			}
			return
		}
	}
	m.selected = append(m.selected, item)
	if !m.Multi {
		m.done = true
	}
}

func (m *TextMenu) isSelected(item fmt.Stringer) bool {
	for _, s := range m.selected {
		if s == item {
			return true
		}
	}
	return false
}

// pageRange returns the bounds of the items on the current page
func (m *TextMenu) pageRange() (int, int) {
	start := (m.page - 1) * m.PageHeight
	if start > len(m.Items) {
		return 0, 0
	}
	end := start + m.PageHeight
	if end > len(m.Items) {
		end = len(m.Items)
	}
	return start, end
}

func (m *TextMenu) FormatPage() string {
	start, end := m.pageRange()
	lines := []string{}
	for n := start; n < end; n++ {
		item := m.Items[n]
		if m.Multi {
			x := " "
			if m.isSelected(item) {
				x = "x"
			}
			lines = append(lines, fmt.Sprintf("%3d) [%s] %s", n+1, x, item))
		} else {
			lines = append(lines, fmt.Sprintf("%3d) %s", n+1, item))
		}
	}
	return fmt.Sprintf("\nPage %d of %d\n%s\n%s", m.page, m.NumPages(), m.Header, strings.Join(lines, "\n"))
}

func (m *TextMenu) FormatPrompt() string {
	opts := []string{"# to select"}
	if m.Multi {
		opts[0] = "# to toggle selection"
	}
	if m.Refresher != nil {
		opts = append(opts, "'r'-refresh")
	}
	if m.page < m.NumPages() {
		opts = append(opts, "'n'-next page")
	}
	if m.page > 1 {
		opts = append(opts, "'p'-previous page")
	}
	opts = append(opts, "or 'c'-continue")
	return strings.Join(opts, ", ") + ": "
}

// act applies one line of user input
func (m *TextMenu) act(input string) error {
	switch input {
	case "r":
		return m.Refresh()
	case "n":
		m.Next()
	case "p":
		m.Prev()
	case "c":
		m.done = true
	default:
		n, err := strconv.Atoi(input)
		start, end := m.pageRange()
		if err != nil || n-1 < start || n-1 >= end {
			fmt.Fprintln(m.out, "Invalid selection")
			return nil
		}
		m.Toggle(m.Items[n-1])
	}
	return nil
}

// Run shows the menu until the user continues and returns the selection.
// End of input counts as continue.
func (m *TextMenu) Run() ([]fmt.Stringer, error) {
	m.done = false
	m.selected = nil
	if m.Refresher != nil && m.Items == nil {
		if err := m.Refresh(); err != nil {
			return nil, err
		}
	}
	for !m.done {
		fmt.Fprintln(m.out, m.FormatPage())
		fmt.Fprint(m.out, m.FormatPrompt())
		if !m.in.Scan() {
			break
		}
		if err := m.act(strings.TrimSpace(m.in.Text())); err != nil {
			return nil, err
		}
	}
	return m.selected, m.in.Err()
}
