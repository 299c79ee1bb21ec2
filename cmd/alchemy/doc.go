// Command alchemy is the CLI front end for the alchemy daemon: it
// starts campaign runs, follows progress streams, lists generated
// assets, and edits the local studio workspace.
package main
