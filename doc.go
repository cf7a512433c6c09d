// Package unitypackage reads and writes .unitypackage archives: a tree of
// assets, each paired with a ".meta" sidecar carrying a stable identifier,
// stored as a tar stream inside a gzip envelope.
//
// Every asset or directory is archived under its identifier:
//   - <id>/asset: the file content (absent for directories)
//   - <id>/asset.meta: the sidecar
//   - <id>/pathname: the slash-separated path to restore it at
//
// # Quick Start
//
// Pack a directory, rooting its paths under "Assets/":
//
//	res, err := unitypackage.Pack(ctx, "./MyPlugin", "MyPlugin.unitypackage",
//	    unitypackage.PackWithRootPrefix(unitypackage.RootAssets),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Entries, res.Digest)
//
// Restore it into an empty directory:
//
//	_, err = unitypackage.Unpack(ctx, "MyPlugin.unitypackage", "./out")
//
// List a package without extracting it:
//
//	info, err := unitypackage.Inspect(ctx, "MyPlugin.unitypackage")
//	for _, e := range info.Entries() {
//	    fmt.Println(e.ID, e.Path)
//	}
//
// # Identifiers
//
// Assets without a sidecar get a freshly generated 32-character lowercase
// hex identifier and a synthesized sidecar inside the archive. Generated
// identifiers never collide with identifiers declared anywhere in the
// source tree. The source tree is never modified.
//
// # Errors
//
// Failures match one of the sentinel errors in this package with
// [errors.Is]; read and write failures also wrap their cause.
package unitypackage
