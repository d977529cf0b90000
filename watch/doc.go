// Polling
//
// Callback API:
//
//	dispose, err := watch.Watch("/mnt/share", func(event watch.Event, path string) {
//		fmt.Println(event, path)
//	}, watch.Options{
//		IgnoreInitial:       true,
//		PollingIntervalCold: 2 * time.Second,
//		PollingIntervalHot:  50 * time.Millisecond,
//	})
//	if err != nil {
//		return err
//	}
//	defer dispose()
//
// Channel API, for code written against fsnotify:
//
//	w, err := watch.NewWatcher("/mnt/share", watch.Options{})
//	if err != nil {
//		return err
//	}
//	defer w.Close()
//	<-w.Ready()
//	for event := range w.Events() {
//		fmt.Println(event.Op, event.Name)
//	}
//
// Recently changed or created files form a small hot set checked on every
// cycle. All other files are checked in chunks so that the whole tree is
// swept once per cold interval, after which the tree is traversed again to
// find additions and removals. PollingIntervalCold must be greater than
// PollingIntervalHot.

package watch
