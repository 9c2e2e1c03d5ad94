// Package engine rewrites fixed foreign imports into dynamically resolved
// delegate thunks.
//
// For a target type holding foreign imports bound to one native library,
// the engine extends the static initializer with a prologue equivalent to
//
//	architecturePlatforms = new Dictionary<string, string>();
//	architecturePlatforms.Add("x86", "Win32");
//	...
//	string name = prefix + architecturePlatforms[Environment.GetEnvironmentVariable(env)] + suffix;
//	Trace.WriteLine(name);
//	nativeLibrary = NativeLibrary.Load(name);
//
// followed by one resolution per import, in declaration order:
//
//	fooPtr = (fooDelegate)Marshal.GetDelegateForFunctionPointer(
//		GetProcAddress(nativeLibrary, "foo"), typeof(fooDelegate));
//
// and replaces every import body with
//
//	return fooPtr.Invoke(arg0, arg1, ...);
//
// The prologue takes the place of a call to the legacy initialization
// routine when the initializer has one, and otherwise runs just before the
// initializer returns.
//
// A module without the target type passes through unchanged.
package engine
