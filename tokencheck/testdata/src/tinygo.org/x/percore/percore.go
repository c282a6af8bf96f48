package percore

type Token struct {
	core uint32
	gen  uint32
}

var zero = Token{}

func Free(work func(Token)) {
	work(Token{gen: 1})
}

func Run[R any](work func(Token) R) R {
	return work(Token{gen: 1})
}

type Cell[T any] struct {
	value T
}

func (c *Cell[T]) Borrow(t Token) *T {
	return &c.value
}
