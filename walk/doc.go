// Traversal
//
// The walk package lists a directory tree in one pass:
//
//	snap, err := walk.Traverse(ctx, "/path/to/tree", walk.Constraints{
//		Depth:  3,
//		Ignore: walk.IgnorePatterns("/path/to/tree", []string{"node_modules/", "*.tmp"}),
//	})
//
//	for _, dir := range snap.Directories {
//		fmt.Println("dir ", dir)
//	}
//	for _, file := range snap.Files {
//		fmt.Println("file", file)
//	}
//
// Cancelling ctx stops the traversal and returns ctx.Err() with an empty
// snapshot. A missing root is not an error and yields an empty snapshot.

package walk
