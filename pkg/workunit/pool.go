package workunit

import "sync"

// pool runs submitted tasks on a fixed set of goroutines.
type pool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func newPool(workers int) *pool {
	if workers < 1 {
		workers = 1
	}
	p := &pool{tasks: make(chan func())}
	for range workers {
		p.wg.Go(func() {
			for task := range p.tasks {
				task()
			}
		})
	}
	return p
}

func (p *pool) submit(task func()) {
	p.tasks <- task
}

// wait stops accepting tasks and blocks until running ones finish.
func (p *pool) wait() {
	close(p.tasks)
	p.wg.Wait()
}
