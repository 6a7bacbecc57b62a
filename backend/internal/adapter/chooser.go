package adapter

// Chooser 是随机源，*rand.Rand 满足该接口；测试里可注入固定序列以便重放
type Chooser interface {
	Intn(n int) int
}

type weighted[T any] struct {
	value  T
	weight int
}

// pick 按权重选一个；总权重为 0 时返回第一个
func pick[T any](c Chooser, options []weighted[T]) T {
	total := 0
	for _, o := range options {
		if o.weight > 0 {
			total += o.weight
		}
	}
	if total == 0 || c == nil {
		return options[0].value
	}
	r := c.Intn(total)
	for _, o := range options {
		if o.weight <= 0 {
			continue
		}
		if r < o.weight {
			return o.value
		}
		r -= o.weight
	}
	return options[len(options)-1].value
}
