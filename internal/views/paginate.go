package views

// PageSize: размер страницы списка задач
const PageSize = 8

// Page: одна страница отфильтрованного списка.
type Page[T any] struct {
	Items      []T
	Number     int
	TotalPages int
	TotalItems int
}

// TotalPages = ceil(n/size), минимум 1.
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Paginate вырезает страницу page (с единицы). Страница за пределами данных
// возвращает пустой срез, а не ошибку.
func Paginate[T any](items []T, size, page int) Page[T] {
	if size <= 0 {
		size = PageSize
	}
	p := Page[T]{
		Number:     page,
		TotalPages: TotalPages(len(items), size),
		TotalItems: len(items),
		Items:      []T{},
	}
	if page < 1 {
		return p
	}

	start := (page - 1) * size
	if start >= len(items) {
		return p
	}
	end := min(start+size, len(items))
	p.Items = items[start:end]
	return p
}

// Pager хранит текущую страницу и зажимает навигацию в [1, totalPages].
type Pager struct {
	Page int
	Size int
}

func NewPager(size int) Pager {
	if size <= 0 {
		size = PageSize
	}
	return Pager{Page: 1, Size: size}
}

// Reset возвращает на первую страницу (вызывается при смене вкладки).
func (p *Pager) Reset() {
	p.Page = 1
}

func (p *Pager) Goto(page, total int) {
	p.Page = clamp(page, 1, TotalPages(total, p.Size))
}

func (p *Pager) Next(total int) {
	p.Goto(p.Page+1, total)
}

func (p *Pager) Prev(total int) {
	p.Goto(p.Page-1, total)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
