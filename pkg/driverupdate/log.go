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
	"log/syslog"

	log "github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"

	v1 "github.com/rhinstaller/anaconda-boot/pkg/types/v1"
)

const logPrefix = "DD: "

type prefixFormatter struct {
	prefix string
	log.Formatter
}

func (f prefixFormatter) Format(entry *log.Entry) ([]byte, error) {
	out, err := f.Formatter.Format(entry)
	if err != nil {
		return nil, err
	}
	return append([]byte(f.prefix), out...), nil
}

// SetupLogger prefixes console messages with "DD: " and, when asked to,
// forwards every message to the system log as well
func SetupLogger(logger v1.Logger, useSyslog bool) {
	logger.SetFormatter(prefixFormatter{
		prefix:    logPrefix,
		Formatter: &log.TextFormatter{DisableTimestamp: true},
	})
	if !useSyslog {
		return
	}
	hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_INFO|syslog.LOG_DAEMON, "DD")
	if err != nil {
		logger.Debugf("syslog not available: %v", err)
		return
	}
	logger.AddHook(hook)
}
