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
	"github.com/hashicorp/go-multierror"
)

type CleanJob func() error

// CleanStack is a basic LIFO stack of cleanup jobs
type CleanStack struct {
	jobs []CleanJob
}

// NewCleanStack returns a new stack.
func NewCleanStack() *CleanStack {
	return &CleanStack{}
}

// Push adds a new job to the stack
func (clean *CleanStack) Push(job CleanJob) {
	clean.jobs = append(clean.jobs, job)
}

// Pop removes and returns the last job of the stack, nil if empty
func (clean *CleanStack) Pop() CleanJob {
	l := len(clean.jobs)
	if l == 0 {
		return nil
	}
	job := clean.jobs[l-1]
	clean.jobs = clean.jobs[:l-1]
	return job
}

// IsEmpty returns true if the stack is empty
func (clean *CleanStack) IsEmpty() bool {
	return len(clean.jobs) == 0
}

// Cleanup runs the whole cleanup stack. In case of error it runs all jobs
// and returns the first error occurrence merged with any further job error.
func (clean *CleanStack) Cleanup(err error) error {
	var errs error
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	for !clean.IsEmpty() {
		job := clean.Pop()
		if e := job(); e != nil {
			errs = multierror.Append(errs, e)
		}
	}
	if merr, ok := errs.(*multierror.Error); ok && merr.Len() == 1 {
		return merr.Errors[0]
	}
	return errs
}
