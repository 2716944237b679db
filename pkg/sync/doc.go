/*
The sync package implements the file mirror used by loopback builds, where
the "build server" is a directory on the user's own machine and no rsync or
ssh is involved.

It follows rsync's archive semantics closely enough that a loopback build
behaves like a remote one. A source path ending in a slash copies the
directory's contents rather than the directory itself.

Exclude patterns are matched against the name of every file and directory
below the source. Excluded paths are skipped at the source and left alone at
the destination, even when mirroring.

Files are compared by contents hash, mode, and modification time. Only files
that differ are copied, and copies keep the source's mode and modification
time. In mirror mode, paths at the destination that don't exist at the
source are removed.
*/
package sync
