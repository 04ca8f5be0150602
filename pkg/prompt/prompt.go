// Copyright 2026 The Bakkutteh Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package prompt collects the interactive answers the dispatch flow needs.
package prompt

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrCancelled indicates the user aborted a prompt. The whole run stops;
// nothing has been submitted at that point.
var ErrCancelled = errors.New("cancelled by user")

// Prompter is the question surface of the dispatch flow. The terminal
// implementation lives here; tests script their own answers.
type Prompter interface {
	// Select asks the user to pick one of options.
	Select(message string, options []string) (string, error)

	// Confirm asks a yes/no question, defaulting to no.
	Confirm(message string) (bool, error)

	// Input asks for a line of text with def preloaded as the editable
	// default. A non-nil validate rejects answers until it passes.
	Input(message, def string, validate func(string) error) (string, error)
}

// Terminal asks on the controlling terminal.
type Terminal struct{}

// Select implements Prompter.
func (Terminal) Select(message string, options []string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Select{Message: message, Options: options}, &answer)
	return answer, mapCancel(err)
}

// Confirm implements Prompter.
func (Terminal) Confirm(message string) (bool, error) {
	var answer bool
	err := survey.AskOne(&survey.Confirm{Message: message}, &answer)
	return answer, mapCancel(err)
}

// Input implements Prompter.
func (Terminal) Input(message, def string, validate func(string) error) (string, error) {
	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			answer, _ := ans.(string)
			return validate(answer)
		}))
	}

	var answer string
	err := survey.AskOne(&survey.Input{Message: message, Default: def}, &answer, opts...)
	return answer, mapCancel(err)
}

func mapCancel(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrCancelled
	}
	return err
}
