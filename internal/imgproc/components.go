package imgproc

import "screenvec/internal/geometry"

// Component is one 8-connected foreground region of a Binary raster.
type Component struct {
	Label int
	Box   geometry.Box
	Count int
}

// LabelComponents finds 8-connected foreground components in row-major
// scan order. The returned label grid maps each pixel to its component's
// Label (0 for background), and components are numbered from 1 in
// discovery order, which makes the result deterministic.
func LabelComponents(b Binary) ([][]int, []Component) {
	w, h := b.Dims()
	labels := make([][]int, h)
	for y := range labels {
		labels[y] = make([]int, w)
	}

	var comps []Component
	next := 1
	queue := make([][2]int, 0, 64)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !b[y][x] || labels[y][x] != 0 {
				continue
			}

			label := next
			next++
			minX, minY, maxX, maxY := x, y, x, y
			count := 0

			labels[y][x] = label
			queue = append(queue[:0], [2]int{x, y})
			for len(queue) > 0 {
				p := queue[len(queue)-1]
				queue = queue[:len(queue)-1]
				px, py := p[0], p[1]
				count++
				if px < minX {
					minX = px
				}
				if px > maxX {
					maxX = px
				}
				if py < minY {
					minY = py
				}
				if py > maxY {
					maxY = py
				}

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := px+dx, py+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						if b[ny][nx] && labels[ny][nx] == 0 {
							labels[ny][nx] = label
							queue = append(queue, [2]int{nx, ny})
						}
					}
				}
			}

			comps = append(comps, Component{
				Label: label,
				Box: geometry.Box{
					X:      minX,
					Y:      minY,
					Width:  maxX - minX + 1,
					Height: maxY - minY + 1,
				},
				Count: count,
			})
		}
	}
	return labels, comps
}
