package reorder

import (
	"math"
	"sync"
)

// Point 是客户端坐标系中的点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect 是客户端坐标系中的矩形。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center 返回中心点。
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// RestrictToParent 平移 r 使其落在 parent 内；比 parent 大时贴住左上角。
func RestrictToParent(r, parent Rect) Rect {
	out := r
	if out.X+out.Width > parent.X+parent.Width {
		out.X = parent.X + parent.Width - out.Width
	}
	if out.Y+out.Height > parent.Y+parent.Height {
		out.Y = parent.Y + parent.Height - out.Height
	}
	if out.X < parent.X {
		out.X = parent.X
	}
	if out.Y < parent.Y {
		out.Y = parent.Y
	}
	return out
}

// Slot 是一个可排序条目在屏幕上的位置。
type Slot struct {
	ID   string `json:"id"`
	Rect Rect   `json:"rect"`
}

// ClosestCenter 返回中心点离 dragged 中心最近的 slot，距离相同取靠前的。
func ClosestCenter(dragged Rect, slots []Slot) (string, bool) {
	c := dragged.Center()
	best, bestDist := "", math.Inf(1)
	for _, s := range slots {
		sc := s.Rect.Center()
		d := math.Hypot(sc.X-c.X, sc.Y-c.Y)
		if d < bestDist {
			best, bestDist = s.ID, d
		}
	}
	return best, best != ""
}

// Direction 是键盘排序的方向。
type Direction string

const (
	ArrowUp   Direction = "ArrowUp"
	ArrowDown Direction = "ArrowDown"
)

// Controller 把纵向列表上的拖拽解析为目标条目。布局由客户端整体上报。
type Controller struct {
	mu     sync.RWMutex
	parent Rect
	slots  []Slot
}

// NewController 返回空的 Controller。
func NewController() *Controller {
	return &Controller{}
}

// SetLayout 记录容器与各条目（按显示顺序）的位置。
func (c *Controller) SetLayout(parent Rect, slots []Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parent = parent
	c.slots = append([]Slot(nil), slots...)
}

func (c *Controller) indexOf(id string) int {
	for i, s := range c.slots {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Target 返回拖拽结束时所在的条目 ID。
func (c *Controller) Target(activeID string, dragged Rect) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.indexOf(activeID) < 0 {
		return "", false
	}
	return c.targetLocked(activeID, dragged)
}

func (c *Controller) targetLocked(activeID string, dragged Rect) (string, bool) {
	if c.parent.Width > 0 && c.parent.Height > 0 {
		dragged = RestrictToParent(dragged, c.parent)
	}
	overID, found := ClosestCenter(dragged, c.slots)
	if !found || overID == activeID {
		return "", false
	}
	return overID, true
}
