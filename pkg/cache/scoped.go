package cache

// ScopedKeyer prefixes every key of an inner Keyer. The server uses it to
// keep several SignMaker deployments apart in one Redis database.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "signmaker:prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, defaulting to DefaultKeyer when nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) RasterKey(svgHash string, scale float64) string {
	return k.prefix + k.inner.RasterKey(svgHash, scale)
}

func (k *ScopedKeyer) ThumbnailKey(rasterHash string, width int) string {
	return k.prefix + k.inner.ThumbnailKey(rasterHash, width)
}
