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

package constants

import (
	"time"
)

const (
	ProgName          = "anaconda-boot"
	EnvPrefix         = "ANACONDA_BOOT"
	ConfigDir         = "/etc/anaconda-boot"
	ConfigFile        = "config.yaml"
	ConfigDropinDir   = "config.d"
	CloudInitHooksDir = "/etc/anaconda-boot/hooks.d"
	HooksStage        = "anaconda-boot.hooks"

	// Kernel and dracut command line sources
	CmdlinePath = "/proc/cmdline"
	CmdlineDir  = "/etc/cmdline.d"

	TmpDir = "/tmp"
	RunDir = "/run/anaconda-boot"

	DefaultPollInterval = 500 * time.Millisecond

	// Driver disk rules
	DriverDiskRulesFile = "/etc/udev/rules.d/91-anaconda-driverdisk.rules"
	OEMDriverDiskSpec   = "LABEL=OEMDRV"
	InitqueueCmd        = "/sbin/initqueue"
	DriverUpdatesCmd    = "/usr/bin/" + ProgName + " driver-updates"
	DDInitqueueName     = "dd_initqueue"
	DevNodePlaceholder  = "$devnode"

	// Driver disk request files, relative to TmpDir
	DDDiskFile        = "dd_disk"
	DDNetFile         = "dd_net"
	DDInteractiveFile = "dd_interactive"
	DDTodoFile        = "dd_todo"
	DDFinishedFile    = "dd_finished"
	DDDoneFile        = "dd.done"
	DDMenuRequest     = "menu"

	// Root resolution
	RootPrefix     = "anaconda-"
	RootNetPrefix  = "anaconda-net:"
	RootDiskPrefix = "anaconda-disk:"
	RootAutoCD     = "anaconda-auto-cd"
	RootDevice     = "/dev/root"
	RootEnvFile    = "/run/anaconda-boot/root.env"
	NeedNetFile    = "/etc/cmdline.d/80-anaconda-neednet.conf"
	NeedNetArg     = "rd.neednet=1"
	RootEnvKey     = "root"
	RootOKEnvKey   = "rootok"
	RootOKValue    = "1"

	// Driver update handler
	AnacondaVersion   = "19.0"
	DDUpdatesDir      = "/updates"
	DDInstallDir      = "/run/install"
	DDMediaDir        = "/media"
	DDPackagesFile    = "dd_packages"
	DDRepoPrefix      = "DD-"
	DDRepoMarker      = "rhdd3"
	FirmwareUpdateDir = "/lib/firmware/updates"
	DDListCmd         = "dd_list"
	DDExtractCmd      = "dd_extract"

	// Post install, sentinels and log sources are relative to TmpDir
	InstallPathEnv    = "ANA_INSTALL_PATH"
	NoSaveLogsFile    = "NOSAVE_LOGS_FILE"
	NoSaveInputKSFile = "NOSAVE_INPUT_KS_FILE"
	PreAnacondaLogs   = "pre-anaconda-logs"
	KickstartFile     = "/run/install/ks.cfg"
	OriginalKSFile    = "root/original-ks.cfg"
	AnacondaLogDir    = "var/log/anaconda"
	JournalLogFile    = "journal.log"
	KSScriptLogGlob   = "ks-script*.log"

	DirPerm        = 0755
	FilePerm       = 0644
	PrivateLogPerm = 0600
)

// GetDefaultLogs returns the installer logs preserved in the installed system
func GetDefaultLogs() []string {
	return []string{
		"anaconda.log", "syslog", "X.log", "program.log", "packaging.log",
		"storage.log", "ifcfg.log", "lvm.log", "dnf.librepo.log", "hawkey.log",
		"dbus.log",
	}
}

// GetNetRepoTypes returns the repo type tags that require network
func GetNetRepoTypes() []string {
	return []string{"http", "https", "ftp", "nfs", "nfs4", "nfsiso"}
}

// GetDiskRepoTypes returns the repo type tags that point to a local device
func GetDiskRepoTypes() []string {
	return []string{"hd", "cd", "cdrom"}
}

// GetModulesUpdateDir returns the module updates directory for the given kernel
func GetModulesUpdateDir(kernelVersion string) string {
	return "/lib/modules/" + kernelVersion + "/updates"
}
