// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	ConfigLoadFailedId Id = iota + 1
	ContainerEngineNotFoundId
	KeyFetchFailedId
	TrustImportFailedId
	PackageInstallFailedId
	ManifestNotFoundId
	ImageBuildFailedId
	SelfTestFailedId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id          // ID used to lookup the issue
		mdMsg    MarkdownMsg // Markdown text that will be rendered
		docLinks []HttpLink
		extLinks []HttpLink // external links that might be useful for the user
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue page. An empty stylePath selects glamour's auto style.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	if stylePath == "" {
		stylePath = "auto"
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the dashboot configuration file.

## Configuration file locations (in order of precedence):
1. The path passed with ` + "`--config`" + `
2. ~/.config/dashboot/config.cue
3. ./dashboot.cue

## Things you can try:
- Write a default configuration and edit it:
~~~
$ dashboot config init
~~~
- Check the file against the schema printed by ` + "`dashboot config show`" + `

## Example configuration:
~~~cue
target: "host"
manifest: "requirements.txt"
launch: {
  port: 5000
  workers: 1
}
~~~`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

The image target needs Docker or Podman to build the dashboard image.

## Things you can try:
- Install Docker or Podman and make sure the daemon is running
- Select the engine explicitly:
~~~cue
container_engine: "docker"
~~~
- Provision the current host instead:
~~~
$ dashboot provision --target host
~~~`,
		extLinks: []HttpLink{"https://docs.docker.com/engine/install/", "https://podman.io/docs/installation"},
	}

	keyFetchFailedIssue = &Issue{
		id: KeyFetchFailedId,
		mdMsg: `
# Could not fetch the vendor signing key!

The signing key is downloaded over HTTPS before any package source is registered.
No package source was written.

## Things you can try:
- Check network access to the key URL (` + "`source.key_url`" + `)
- Make sure the URL uses https://
- Retry the run; dashboot does not retry network fetches on its own`,
	}

	trustImportFailedIssue = &Issue{
		id: TrustImportFailedId,
		mdMsg: `
# Could not import the signing key!

The key was fetched but could not be written to the keyring or the APT trust store.

## Things you can try:
- Run the host provisioner as root (keyring paths live under /usr/share/keyrings)
- Switch to the scoped keyring mechanism if ` + "`apt-key`" + ` is unavailable:
~~~cue
source: trust_mode: "keyring"
~~~`,
	}

	packageInstallFailedIssue = &Issue{
		id: PackageInstallFailedId,
		mdMsg: `
# Package installation failed!

A package manager command exited with a non-zero status. Its own output is shown above.

## Things you can try:
- Check that the package index is reachable
- Check that the package names in ` + "`os_packages`" + ` and ` + "`browser.package`" + ` exist
- Re-run the whole pipeline from the start; partial runs are not resumed`,
	}

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# Dependency manifest problem!

The requirements file could not be read or one of its entries could not be resolved.

## Things you can try:
- Check the ` + "`manifest`" + ` path (default: requirements.txt)
- Pin versions with ` + "`==`" + `, e.g. ` + "`flask==2.0.0`",
	}

	imageBuildFailedIssue = &Issue{
		id: ImageBuildFailedId,
		mdMsg: `
# Image build failed!

The container engine aborted the build. No image was tagged.

## Things you can try:
- Inspect the generated Dockerfile:
~~~
$ dashboot render dockerfile
~~~
- Rebuild without the layer cache:
~~~
$ dashboot provision --target image --no-cache
~~~`,
	}

	selfTestFailedIssue = &Issue{
		id: SelfTestFailedId,
		mdMsg: `
# Browser self-test failed!

The browser binary is missing, not executable, or printed no version.

## Things you can try:
- Check that ` + "`browser.binary`" + ` matches the installed package
- Relax ` + "`browser.min_version`" + ` if the installed version is older than required`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		keyFetchFailedIssue.Id():          keyFetchFailedIssue,
		trustImportFailedIssue.Id():       trustImportFailedIssue,
		packageInstallFailedIssue.Id():    packageInstallFailedIssue,
		manifestNotFoundIssue.Id():        manifestNotFoundIssue,
		imageBuildFailedIssue.Id():        imageBuildFailedIssue,
		selfTestFailedIssue.Id():          selfTestFailedIssue,
	}
)

// Values returns every registered issue ordered by Id.
func Values() []*Issue {
	out := maps.Values(issues)
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
