package main

// combinations returns the unique subsets of size k of the integers 0..n-1,
// in order. There are n! / (k! * (n-k)!) of them.
//
// Example: combinations(5, 3) ->
//
//	[0,1,2], [0,1,3], [0,1,4], [0,2,3], [0,2,4],
//	[0,3,4], [1,2,3], [1,2,4], [1,3,4], [2,3,4]
func combinations(n, k int) chan []int {
	ch := make(chan []int)
	go combinationsInternal(ch, n, k)
	return ch
}

func combinationsInternal(ch chan []int, n int, k int) {
	defer close(ch)

	if k <= 0 || k > n {
		return
	}

	// a[0] holds a dummy value.
	a := make([]int, k+1)
	for i := range a {
		a[i] = i - 1
	}

	for {
		// Each combination gets its own copy, later ones reuse a.
		b := make([]int, k)
		copy(b, a[1:])
		ch <- b

		// Look right to left for the first digit that can be incremented.
		j := k
		for j > 0 && a[j] == n-k+j-1 {
			j--
		}
		if j == 0 {
			return
		}

		a[j]++
		for i := j + 1; i <= k; i++ {
			a[i] = a[i-1] + 1
		}
	}
}
