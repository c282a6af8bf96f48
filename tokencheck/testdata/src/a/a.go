package a

import "tinygo.org/x/percore"

var leaked percore.Token // want `package-level variable leaked holds a percore.Token`

var table []*percore.Token // want `package-level variable table holds a percore.Token`

type holder struct {
	n int
	t percore.Token // want `struct field t holds a percore.Token`
}

type nested struct {
	h holder // want `struct field h holds a percore.Token`
}

func forge() {
	_ = percore.Token{} // want `percore.Token can only be obtained from percore.Free or percore.Run`
}

func escape() {
	var saved percore.Token
	percore.Free(func(t percore.Token) {
		saved = t // want `percore.Token escapes its region through assignment to saved`
	})
	_ = saved
}

func local(c *percore.Cell[int]) {
	percore.Free(func(t percore.Token) {
		var again percore.Token
		again = t
		u := again
		*c.Borrow(u)++
	})
}

func channel() {
	ch := make(chan percore.Token, 1) // want `channel element type holds a percore.Token`
	_ = ch
}

func goroutine(c *percore.Cell[int]) {
	percore.Free(func(t percore.Token) {
		go func() {
			*c.Borrow(t)++ // want `percore.Token t used in a goroutine`
		}()
		go use(c, t) // want `percore.Token passed to a goroutine`
	})
}

func use(c *percore.Cell[int], t percore.Token) {
	*c.Borrow(t) = 1
}

func returned() percore.Token { // want `function returns a percore.Token`
	return percore.Run(func(t percore.Token) percore.Token { // want `function returns a percore.Token`
		return t
	})
}

func result(c *percore.Cell[int]) int {
	return percore.Run(func(t percore.Token) int {
		return *c.Borrow(t)
	})
}
